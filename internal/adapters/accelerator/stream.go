package accelerator

import (
	"context"
	"sync"
)

// stream runs operations asynchronously but strictly in issue order. The first error since the
// last synchronize is kept and handed to the next synchronizing caller.
type stream struct {
	mu   sync.Mutex
	tail chan struct{}
	err  error
}

func (s *stream) enqueue(op func() error) {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tail
	s.tail = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}

		if err := op(); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
	}()
}

// wait blocks until all issued operations completed, without consuming a pending error.
func (s *stream) wait(ctx context.Context) error {
	s.mu.Lock()
	tail := s.tail
	s.mu.Unlock()

	if tail == nil {
		return nil
	}

	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stream) synchronize(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.err
	s.err = nil
	return err
}

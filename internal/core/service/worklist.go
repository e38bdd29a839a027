package service

import (
	"bufio"
	"fmt"
	"gpuresize/internal/core/domain"
	"io"
	"os"
	"strings"
)

const maxListLine = 1 << 20

// WorkList streams paths out of a list file, one per line. Blank lines are skipped; there is no
// comment or quoting syntax.
type WorkList struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// OpenWorkList opens the list file at path. The returned error wraps domain.ErrListUnreadable.
func OpenWorkList(path string) (*WorkList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", domain.ErrListUnreadable, path, err)
	}

	wl := NewWorkList(f)
	wl.closer = f
	return wl, nil
}

func NewWorkList(r io.Reader) *WorkList {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxListLine)
	return &WorkList{scanner: s}
}

// Next returns the next non-blank path. ok is false at the end of the list or on a read error,
// which Err reports.
func (w *WorkList) Next() (path string, ok bool) {
	for w.scanner.Scan() {
		w.line++
		text := strings.TrimSuffix(w.scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		return text, true
	}
	return "", false
}

// Line is the number of the last line read.
func (w *WorkList) Line() int {
	return w.line
}

func (w *WorkList) Err() error {
	if err := w.scanner.Err(); err != nil {
		return fmt.Errorf("error reading list after line %d: %w", w.line, err)
	}
	return nil
}

func (w *WorkList) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

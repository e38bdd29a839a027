package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Prober checks input paths with Probe.
type Prober struct{}

func (Prober) Probe(path string) error {
	return Probe(path)
}

// Probe opens path for reading and closes it again.
func Probe(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// ReadFile returns the content of the file at path.
func ReadFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("error reading file %w", err)
		log.Debug().Err(err).Str("path", path).Send()
		return nil, err
	}

	return buf, nil
}

// WriteFileAtomic writes data to a uuid-named temp file next to path and renames it into place,
// so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, id.String()))

	log.Debug().Int("bytes", len(data)).Str("path", tmp).Msg("creating temp file")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("error creating temp file %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		RemoveTempFile(tmp)
		return fmt.Errorf("error writing temp file %w", err)
	}

	if err := f.Close(); err != nil {
		RemoveTempFile(tmp)
		return fmt.Errorf("error closing temp file %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		RemoveTempFile(tmp)
		return fmt.Errorf("error renaming temp file %w", err)
	}

	log.Debug().Str("path", path).Msg("created file")

	return nil
}

// RemoveTempFile removes a specified temporary file at the given path and logs success or failure.
func RemoveTempFile(path string) {
	err := os.Remove(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up temp file")
		return
	}
	log.Debug().Str("path", path).Msg("cleaned up temp file")
}

// DefaultSearchPaths lists where bundled assets are looked up: the working directory, its data
// directory, the executable's directory and the data directory next to the executable.
func DefaultSearchPaths() []string {
	dirs := []string{".", "data"}

	exe, err := os.Executable()
	if err != nil {
		log.Debug().Err(err).Msg("could not resolve executable path")
		return dirs
	}

	exeDir := filepath.Dir(exe)
	return append(dirs, exeDir, filepath.Join(exeDir, "data"))
}

// FindAsset returns the first readable dirs/name. If none exists, name is returned unchanged
// together with false.
func FindAsset(name string, dirs []string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, Probe(name) == nil
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if err := Probe(candidate); err == nil {
			log.Debug().Str("path", candidate).Msg("found asset")
			return candidate, true
		}
	}

	return name, false
}

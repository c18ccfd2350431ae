package plinstall

import (
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

var errRegistryReleased = errors.New("temporary directory registry already released")

// TempRegistry owns every temporary extraction directory created during one
// invocation. Release removes them all and runs at most once; it is safe to
// call from the signal handler while the main flow is still running.
type TempRegistry struct {
	mu       sync.Mutex
	base     string
	dirs     []string
	released bool
}

// NewTempRegistry creates directories under base, or os.TempDir() when empty.
func NewTempRegistry(base string) *TempRegistry {
	return &TempRegistry{base: base}
}

// SetBase changes where later directories are created.
func (r *TempRegistry) SetBase(base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = base
}

// Allocate creates and registers a fresh directory.
func (r *TempRegistry) Allocate() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return "", newError(ErrTempDir, errRegistryReleased.Error())
	}
	dir, err := os.MkdirTemp(r.base, "plinstall-")
	if err != nil {
		return "", wrapError(err, ErrTempDir, "failed to create temporary directory")
	}
	r.dirs = append(r.dirs, dir)
	log.Debug().Str("dir", dir).Msg("Allocated temporary directory")
	return dir, nil
}

// Release removes every registered directory, best-effort. Failures are
// logged and returned joined; later calls do nothing.
func (r *TempRegistry) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil
	}
	r.released = true

	var errs []error
	for _, dir := range r.dirs {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to remove temporary directory")
			errs = append(errs, err)
			continue
		}
		log.Debug().Str("dir", dir).Msg("Removed temporary directory")
	}
	return errors.Join(errs...)
}

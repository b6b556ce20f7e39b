package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// workspace owns every temporary file of a run. Close removes them all,
// whichever way the run ended.
type workspace struct {
	dir     string
	tracked []string
}

func newWorkspace(base, name string) (*workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	dir := filepath.Join(base, name)
	// Mkdir, not MkdirAll: an existing directory means a name collision.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, err
	}
	return &workspace{dir: dir}, nil
}

// track registers a file outside dir that Close must also remove.
func (w *workspace) track(path string) {
	w.tracked = append(w.tracked, path)
}

func (w *workspace) Close() error {
	var errs []error
	for _, p := range w.tracked {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(w.dir); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type outputLock struct {
	fl *flock.Flock
}

// acquireOutputLock stops two runs from writing the same destination. The
// lock file lives in the temp dir, keyed by the destination path, and is
// reused across runs.
func acquireOutputLock(base, absOut string) (*outputLock, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(lockPath(base, absOut))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("output %s is being written by another vdenoise run", absOut)
	}
	return &outputLock{fl: fl}, nil
}

// release unlocks but keeps the lock file: removing it would let a waiting
// run lock the unlinked inode while another creates a fresh file.
func (l *outputLock) release() {
	_ = l.fl.Unlock()
}

func lockPath(base, absOut string) string {
	return filepath.Join(base, "vdenoise-"+hash(absOut)+".lock")
}

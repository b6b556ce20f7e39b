// Package deepfilter runs the DeepFilterNet speech enhancement model through
// its deep-filter command-line binary. The binary ships the pretrained
// DeepFilterNet3 weights, so no model path is passed.
package deepfilter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// SampleRate is the only rate DeepFilterNet runs inference at.
const SampleRate = 48000

type Adapter struct {
	bin string

	mu       sync.Mutex
	resolved string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "deep-filter"
	}
	return &Adapter{bin: binPath}
}

func (a *Adapter) SampleRate() int { return SampleRate }

// Load resolves the binary and asks it for its version, which fails fast when
// the bundled model cannot be unpacked.
func (a *Adapter) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved != "" {
		return nil
	}

	path, err := exec.LookPath(a.bin)
	if err != nil {
		return fmt.Errorf("deep-filter binary %q not found: %w", a.bin, err)
	}
	b, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("deep-filter --version: %w\n%s", err, strings.TrimSpace(string(b)))
	}
	a.resolved = path
	return nil
}

func (a *Adapter) Enhance(ctx context.Context, inWav, outWav string) error {
	if err := a.Load(ctx); err != nil {
		return err
	}

	// deep-filter writes <out-dir>/<input base name>; give it a private dir
	// so the result never lands on top of the input.
	outDir, err := os.MkdirTemp(filepath.Dir(outWav), "deep-filter-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(outDir)

	args := []string{
		"--compensate-delay",
		"-o", outDir,
		inWav,
	}
	cmd := exec.CommandContext(ctx, a.resolved, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("deep-filter failed: %w\n%s", err, strings.TrimSpace(string(b)))
	}

	produced := filepath.Join(outDir, filepath.Base(inWav))
	if _, err := os.Stat(produced); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("deep-filter produced no output for %s\n%s", filepath.Base(inWav), strings.TrimSpace(string(b)))
		}
		return err
	}
	return os.Rename(produced, outWav)
}

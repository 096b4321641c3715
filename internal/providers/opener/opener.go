// Package opener implements the "open a local path with the OS default
// application" adapter (spec.md §4.I). Two call sites reach it with
// identical semantics and no inferred ordering between them (spec.md §9
// open question): the local open_local_file tool, and a browser-initiated
// open_file typed frame (§6). Both share Validate and Open so neither path
// can drift from the other.
package opener

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var (
	ErrEmptyPath    = errors.New("path must not be empty")
	ErrNotAbsolute  = errors.New("path must be absolute")
	ErrDoesNotExist = errors.New("path does not exist")
)

// Provider is the OS opener adapter boundary.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Open(ctx context.Context, path string) error
}

type absent struct{}

func Absent() Provider { return absent{} }

func (absent) Name() string                       { return "opener" }
func (absent) Available(ctx context.Context) bool { return false }
func (absent) Open(ctx context.Context, path string) error {
	return errors.New("OS opener not available on this platform")
}

// osOpener shells out to the platform's default-application launcher.
type osOpener struct {
	command string
	args    []string
}

// New selects the platform opener command: "open" on darwin, "xdg-open" on
// linux, "cmd /c start" on windows. Unsupported platforms get Absent.
func New() Provider {
	switch runtime.GOOS {
	case "darwin":
		return &osOpener{command: "open"}
	case "linux":
		return &osOpener{command: "xdg-open"}
	case "windows":
		return &osOpener{command: "cmd", args: []string{"/c", "start", ""}}
	default:
		return Absent()
	}
}

func (o *osOpener) Name() string { return "opener" }

func (o *osOpener) Available(ctx context.Context) bool {
	_, err := exec.LookPath(o.command)
	return err == nil
}

func (o *osOpener) Open(ctx context.Context, path string) error {
	if err := Validate(path); err != nil {
		return err
	}
	args := append(append([]string{}, o.args...), path)
	cmd := exec.CommandContext(ctx, o.command, args...)
	return cmd.Run()
}

// Validate applies the shared path validation used by both the local tool
// and the browser-forwarded message path: must be non-empty, absolute, and
// must exist on the bridge host's filesystem.
func Validate(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if !filepath.IsAbs(path) {
		return ErrNotAbsolute
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrDoesNotExist
		}
		return err
	}
	return nil
}

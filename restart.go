package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// restarter turns a Reset accepted by the charge point into a process exit followed by a re-exec
// (soft) or a host reboot (hard).
type restarter struct {
	stop context.CancelFunc

	mu        sync.Mutex
	requested bool
	hard      bool
}

func (r *restarter) Restart(hard bool) error {
	r.mu.Lock()
	r.requested = true
	r.hard = r.hard || hard
	r.mu.Unlock()
	r.stop()
	return nil
}

func (r *restarter) pending() (requested, hard bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requested, r.hard
}

func reboot(hard bool) error {
	if hard {
		return exec.Command("reboot").Run()
	}
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(executable, os.Args, os.Environ())
}

// installFirmware replaces the running binary with the downloaded image. It takes effect on the
// next restart.
func installFirmware(path string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	staged := executable + ".new"
	out, err := os.OpenFile(staged, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("stage firmware: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(staged, executable)
}

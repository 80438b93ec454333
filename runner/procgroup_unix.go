//go:build unix

package runner

import (
	"context"
	"os/exec"
	"syscall"
)

// DefaultCommandBuilder starts the child in its own process group and kills
// the whole group when ctx ends, so build tools cannot leave orphans behind.
func DefaultCommandBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killGracePeriod
	return cmd, func() {}
}

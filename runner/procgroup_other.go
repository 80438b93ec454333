//go:build !unix

package runner

import (
	"context"
	"os/exec"
)

// DefaultCommandBuilder kills only the direct child on platforms without
// process groups.
func DefaultCommandBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.WaitDelay = killGracePeriod
	return cmd, func() {}
}

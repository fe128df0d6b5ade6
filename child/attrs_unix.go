//go:build !windows

package child

import (
	"os/exec"
	"syscall"
)

// isolate places the child in its own process group so that signals sent to
// the parent's group do not reach it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

//go:build windows

package child

import "os/exec"

// Process groups are a POSIX facility; on Windows isolation is a no-op and
// the child shares the parent's console group.
func isolate(cmd *exec.Cmd) {}

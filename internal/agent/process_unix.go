//go:build unix

package agent

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group so the whole tree can
// be signalled at once.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalTerminate sends SIGTERM to the child's process group, falling back to
// the child itself.
func signalTerminate(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	return nil
}

// forceKill sends SIGKILL to the child's process group, falling back to the
// child itself.
func forceKill(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

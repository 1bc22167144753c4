//go:build !unix

package agent

import "os/exec"

// No process groups here; the child is signalled directly.
func setProcAttr(cmd *exec.Cmd) {}

func signalTerminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func forceKill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

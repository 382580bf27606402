//go:build windows

package process

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// terminate kills the process; Windows has no SIGTERM.
func terminate(c *exec.Cmd) error {
	if c.Process == nil {
		return nil
	}
	return c.Process.Kill()
}

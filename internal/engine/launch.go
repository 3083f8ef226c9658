package engine

import (
	"os/exec"
	"runtime"
)

// launchDetached spawns the platform file/URL opener for target and does not
// wait on it. Failures are swallowed: @launch is best-effort and must never
// fail the owning node.
func launchDetached(target string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return
	}
	_ = cmd.Process.Release()
}

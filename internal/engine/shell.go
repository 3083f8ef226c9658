package engine

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
)

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// shellRunner invokes single command lines through the platform shell.
type shellRunner struct {
	shell  []string
	dir    string
	env    []string
	stdout io.Writer
	stderr io.Writer
}

// run executes line and returns the command's error verbatim: non-zero exit,
// signal termination, and spawn failure all surface as a non-nil error.
func (r *shellRunner) run(ctx context.Context, line string) error {
	args := append(append([]string(nil), r.shell[1:]...), line)
	cmd := exec.CommandContext(ctx, r.shell[0], args...)
	cmd.Dir = r.dir
	cmd.Env = r.env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	return cmd.Run()
}

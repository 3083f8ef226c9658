package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// needsSpec is a parsed "@needs cmd [hint…] [-> task]" line.
type needsSpec struct {
	Command string
	Hint    string
	Remedy  string
}

func parseNeeds(line string) (needsSpec, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return needsSpec{}, fmt.Errorf("bad @needs line: %w", err)
	}
	if len(words) == 0 {
		return needsSpec{}, fmt.Errorf("@needs requires a command name")
	}
	spec := needsSpec{Command: words[0]}
	rest := words[1:]
	for i, w := range rest {
		if w == "->" {
			if i+1 < len(rest) {
				spec.Remedy = rest[i+1]
			}
			rest = rest[:i]
			break
		}
	}
	spec.Hint = strings.Join(rest, " ")
	return spec, nil
}

// commandAvailable checks whether cmd resolves via PATH or is an accessible
// absolute path.
func commandAvailable(cmd string) bool {
	if filepath.IsAbs(cmd) {
		st, err := os.Stat(cmd)
		return err == nil && !st.IsDir()
	}
	_, err := exec.LookPath(cmd)
	return err == nil
}

package executor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

const runDirLayout = "20060102-150405"

// RunDirCandidates lists the bases tried for a run directory, in order.
func RunDirCandidates(base string) []string {
	var out []string
	if base != "" {
		out = append(out, base)
	}
	return append(out, filepath.Join(os.TempDir(), "runs"), "runs")
}

// MakeRunDir creates a fresh directory named after now under the first
// writable base. A random suffix keeps runs started within the same second
// apart.
func MakeRunDir(base string, now time.Time) (string, error) {
	name := now.Format(runDirLayout)

	var lastErr error
	for _, root := range RunDirCandidates(base) {
		abs, err := filepath.Abs(root)
		if err != nil {
			lastErr = err
			continue
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			lastErr = err
			continue
		}
		dir, err := os.MkdirTemp(abs, name+"-*")
		if err != nil {
			lastErr = err
			continue
		}
		return dir, nil
	}
	return "", eris.Wrap(lastErr, "executor: no writable runs directory")
}

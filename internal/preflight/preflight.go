// Package preflight verifies the runtime environment before the daemon
// starts processing.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"cliplift/internal/config"
	"cliplift/internal/services"
)

// minFreeBytes is the floor below which ingestion would likely fail mid-render.
const minFreeBytes = 2 << 30

// Check validates required binaries, directories, and free disk space.
// Failures are reported together so the operator fixes everything at once.
func Check(cfg *config.Config) error {
	var problems []string

	for _, binary := range []string{cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.WhisperXBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			problems = append(problems, fmt.Sprintf("binary %q not found in PATH", binary))
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		problems = append(problems, err.Error())
	} else if free, err := freeBytes(cfg.Paths.BaseDataDir); err != nil {
		problems = append(problems, fmt.Sprintf("free-space check failed: %v", err))
	} else if free < minFreeBytes {
		problems = append(problems, fmt.Sprintf("only %d MiB free under %s, need at least %d MiB",
			free/(1<<20), cfg.Paths.BaseDataDir, int64(minFreeBytes)/(1<<20)))
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrConfiguration, "", "preflight",
			strings.Join(problems, "; "), nil)
	}
	return nil
}

func freeBytes(path string) (uint64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

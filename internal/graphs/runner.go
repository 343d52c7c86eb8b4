// Package graphs regenerates the static time-series graphs by shelling out
// to an operator-provided command, typically a plotting script reading the
// per-basin tables.
package graphs

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes the configured graph command with the output directory as
// its final argument. It implements pipeline.GraphRenderer.
type Runner struct {
	command   string
	outputDir string
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a runner. command is split on whitespace; the first token is
// the executable.
func New(command, outputDir string, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{command: command, outputDir: outputDir, timeout: timeout, logger: logger}
}

// Render runs the command, bounded by the configured timeout. Output from
// the command is captured and logged on failure.
func (r *Runner) Render(ctx context.Context) error {
	args := strings.Fields(r.command)
	if len(args) == 0 {
		return fmt.Errorf("graphs: empty command")
	}
	args = append(args, r.outputDir)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("graphs: %s: %w (output: %s)", args[0], err, strings.TrimSpace(string(out)))
	}
	r.logger.Info("graphs regenerated", "command", args[0], "elapsed", time.Since(start))
	return nil
}

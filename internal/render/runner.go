package render

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// stderrLogCap bounds how much tool stderr lands in a single log record.
const stderrLogCap = 8 << 10

// Runner invokes an external tool (pdftoppm, tesseract) and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner is the os/exec Runner. The process is killed when ctx ends.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	began := time.Now()
	err := cmd.Run()
	attrs := []any{
		"tool", name,
		"argv", strings.Join(args, " "),
		"duration_ms", time.Since(began).Milliseconds(),
	}
	if err != nil {
		logger.Error("tool.exec.failed", append(attrs, "error", err, "stderr", Truncate(stderr.String(), stderrLogCap))...)
	} else {
		logger.Debug("tool.exec", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

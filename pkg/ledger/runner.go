package ledger

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

// ErrExternalProcess is returned when the ledger binary cannot be started or
// exits with a failure.
var ErrExternalProcess = errors.New("external process failed")

// ProcessError carries the diagnostics of a failed ledger invocation.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s: exit code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalProcess}
	}
	return []error{ErrExternalProcess, e.Err}
}

// Runner executes the ledger tool and returns its stdout split into lines.
type Runner interface {
	Run(ctx context.Context, args []string) ([]string, error)
}

// ExecRunner runs a local ledger binary.
type ExecRunner struct {
	logger  *log.Logger
	binary  string
	timeout time.Duration
}

// NewExecRunner returns a runner for binary. A zero timeout disables the
// deadline.
func NewExecRunner(logger *log.Logger, binary string, timeout time.Duration) *ExecRunner {
	if binary == "" {
		binary = "ledger"
	}
	return &ExecRunner{logger: logger, binary: binary, timeout: timeout}
}

func (r *ExecRunner) Run(ctx context.Context, args []string) ([]string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("ledger finished", "binary", r.binary, "elapsed", time.Since(start), "error", err)
	if err != nil {
		perr := &ProcessError{
			Command:  r.binary + " " + strings.Join(args, " "),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			perr.ExitCode = exitErr.ExitCode()
		}
		return nil, perr
	}

	return splitLines(stdout.Bytes())
}

func splitLines(out []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger output: %w", err)
	}
	return lines, nil
}

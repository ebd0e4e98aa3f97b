// Package extract runs the external inventory tools and returns their
// standard output as text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ExecutionError is returned when an inventory tool is missing, not
// executable, or cannot be started.
type ExecutionError struct {
	Command string
	Args    []string
	Err     error
}

func (e *ExecutionError) Error() string {
	cmdline := strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	return fmt.Sprintf("cannot run %s: %v", cmdline, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Runner runs a command and returns its standard output
type Runner interface {
	Run(name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec. Standard error is discarded.
type ExecRunner struct {
	// StrictExit turns a non-zero exit status into an ExecutionError.
	// Otherwise whatever the tool printed is returned and a warning logged.
	StrictExit bool
	Logger     *slog.Logger
}

// NewExecRunner creates a runner logging to logger (slog.Default if nil)
func NewExecRunner(strictExit bool, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{StrictExit: strictExit, Logger: logger}
}

// Run executes name with args and returns stdout
func (r *ExecRunner) Run(name string, args ...string) (string, error) {
	var stdout bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	r.logger().Debug("running command", "command", name, "args", args)

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || r.StrictExit {
			return "", &ExecutionError{Command: name, Args: args, Err: err}
		}
		r.logger().Warn("command exited with non-zero status, using its output anyway",
			"command", name, "args", args, "exit_code", exitErr.ExitCode())
	}

	return stdout.String(), nil
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// CheckExecutable verifies path names an executable regular file
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ExecutionError{Command: path, Err: err}
	}
	if info.IsDir() {
		return &ExecutionError{Command: path, Err: errors.New("is a directory")}
	}
	if info.Mode().Perm()&0111 == 0 {
		return &ExecutionError{Command: path, Err: errors.New("not executable")}
	}
	return nil
}

// CommandExists checks if a command is available in the system PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

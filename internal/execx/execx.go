// Package execx runs external programs with output capture, environment
// overrides and context support. Stage adapters and the provisioner drive
// every build tool, container engine and configuration-management call
// through a Runner so tests can substitute a fake.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Result holds the output and exit status of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
}

// Options configures command execution behavior
type Options struct {
	WorkingDir        string
	Env               map[string]string
	RedirectToConsole bool
	Stdin             string
}

// Option is a function that modifies Options
type Option func(*Options)

// WithWorkingDir sets the working directory
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables on top of the current process env
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithConsoleRedirect mirrors output to the console while still capturing it
func WithConsoleRedirect(redirect bool) Option {
	return func(o *Options) {
		o.RedirectToConsole = redirect
	}
}

// WithStdin supplies input on stdin
func WithStdin(input string) Option {
	return func(o *Options) {
		o.Stdin = input
	}
}

// CommandRunner is the production Runner backed by os/exec.
type CommandRunner struct{}

// NewRunner creates a CommandRunner.
func NewRunner() *CommandRunner {
	return &CommandRunner{}
}

// Run executes program with args and captures stdout, stderr and the
// combined stream. A non-zero exit is returned as an error alongside the
// captured Result so callers can report diagnostic output.
func (r *CommandRunner) Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	cmd := exec.CommandContext(ctx, program, args...)
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if options.Stdin != "" {
		cmd.Stdin = strings.NewReader(options.Stdin)
	}

	var stdoutBuf, stderrBuf, combinedBuf bytes.Buffer
	stdoutWriters := []io.Writer{&stdoutBuf, &combinedBuf}
	stderrWriters := []io.Writer{&stderrBuf, &combinedBuf}
	if options.RedirectToConsole {
		stdoutWriters = append(stdoutWriters, os.Stdout)
		stderrWriters = append(stderrWriters, os.Stderr)
	}
	cmd.Stdout = io.MultiWriter(stdoutWriters...)
	cmd.Stderr = io.MultiWriter(stderrWriters...)

	err := cmd.Run()

	result := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Combined: combinedBuf.String(),
	}
	var exitErr *exec.ExitError
	switch {
	case err != nil && errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err == nil:
		result.ExitCode = 0
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("%s: %w", program, err)
	}
	return result, nil
}

// Package provision idempotently ensures the host toolchain the pipeline
// depends on: build toolchain, container engine, configuration-management
// agent, CI server, and the metrics stack. Tools are described by a
// declarative ordered catalog and ensured one by one, fail-fast.
package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/loykin/shiprun/internal/common"
	"github.com/loykin/shiprun/internal/execx"
)

// State is the outcome of ensuring a single tool.
type State string

const (
	StatePresent   State = "already-present"
	StateInstalled State = "installed"
)

// Command is one declarative tool command.
type Command struct {
	Program string
	Args    []string
}

// ToolSpec declares how one tool is detected, installed and verified.
// Check runs first and must print something containing Version when the
// tool already satisfies the requirement; only then is Install skipped.
type ToolSpec struct {
	Name    string
	Version string
	Check   Command
	Install []Command
	Verify  Command
}

// PreconditionError is an unsafe execution context: elevated identity or an
// unsupported host. Nothing is touched once one is detected.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "provisioning precondition failed: " + e.Reason
}

// InstallError is a failed install or post-install verification for one tool.
type InstallError struct {
	Tool   string
	Output string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s failed: %v", e.Tool, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Provisioner ensures tools from a catalog on a single host. Not safe for
// concurrent invocations; the caller serializes provisioning runs.
type Provisioner struct {
	runner   execx.Runner
	logger   *common.Logger
	euid     func() int
	lookPath func(string) (string, error)
}

// New creates a Provisioner using the real command runner.
func New(runner execx.Runner) *Provisioner {
	return &Provisioner{
		runner:   runner,
		logger:   common.GetLogger().WithComponent("provision"),
		euid:     os.Geteuid,
		lookPath: exec.LookPath,
	}
}

// CheckPreconditions verifies the host is safe to provision: the current
// identity must not be root, and the known package manager must be present.
func (p *Provisioner) CheckPreconditions() error {
	if p.euid() == 0 {
		return &PreconditionError{Reason: "refusing to run as root; run as a regular user with sudo available"}
	}
	if _, err := p.lookPath("apt-get"); err != nil {
		return &PreconditionError{Reason: "apt-get not found; only apt-based hosts are supported"}
	}
	return nil
}

// Ensure makes sure one tool is present at its required version. Calling it
// again for a satisfied tool performs no install side effects.
func (p *Provisioner) Ensure(ctx context.Context, tool ToolSpec) (State, error) {
	logger := p.logger.WithTool(tool.Name)

	if p.satisfied(ctx, tool) {
		logger.Info("tool already present", "version", tool.Version)
		return StatePresent, nil
	}

	logger.Info("installing tool", "version", tool.Version)
	for _, cmd := range tool.Install {
		res, err := p.runner.Run(ctx, cmd.Program, cmd.Args)
		if err != nil {
			out := ""
			if res != nil {
				out = res.Combined
			}
			return "", &InstallError{Tool: tool.Name, Output: out, Err: err}
		}
	}

	if tool.Verify.Program != "" {
		res, err := p.runner.Run(ctx, tool.Verify.Program, tool.Verify.Args)
		if err != nil {
			out := ""
			if res != nil {
				out = res.Combined
			}
			return "", &InstallError{Tool: tool.Name, Output: out,
				Err: fmt.Errorf("post-install verification: %w", err)}
		}
		if tool.Version != "" && !strings.Contains(res.Combined, tool.Version) {
			return "", &InstallError{Tool: tool.Name, Output: res.Combined,
				Err: fmt.Errorf("verification output does not report version %s", tool.Version)}
		}
	}

	logger.Info("tool installed", "version", tool.Version)
	return StateInstalled, nil
}

// satisfied runs the presence check and compares the reported version.
func (p *Provisioner) satisfied(ctx context.Context, tool ToolSpec) bool {
	if tool.Check.Program == "" {
		return false
	}
	res, err := p.runner.Run(ctx, tool.Check.Program, tool.Check.Args)
	if err != nil {
		return false
	}
	if tool.Version == "" {
		return true
	}
	return strings.Contains(res.Combined, tool.Version)
}

// EnsureAll ensures every tool in catalog order. The first failure aborts
// the run: a host with some but not all tools is unsafe to proceed on, so
// later tools are never attempted.
func (p *Provisioner) EnsureAll(ctx context.Context, catalog []ToolSpec) (map[string]State, error) {
	if err := p.CheckPreconditions(); err != nil {
		return nil, err
	}

	states := make(map[string]State, len(catalog))
	for _, tool := range catalog {
		state, err := p.Ensure(ctx, tool)
		if err != nil {
			return states, err
		}
		states[tool.Name] = state
	}
	p.logger.Info("provisioning complete", "tools", len(catalog))
	return states, nil
}

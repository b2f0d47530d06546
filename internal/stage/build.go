// Package stage implements the pipeline stage adapters. Each adapter wraps
// one external collaborator (version control, build tool, container engine,
// configuration management) behind the pipeline.Stage contract.
package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/pipeline"
)

// BuildTool invokes the project build tool (Maven-shaped: compile, test,
// package). Each operation returns the captured console output; a non-zero
// exit fails the calling stage.
type BuildTool struct {
	Program string // defaults to "mvn"
	Runner  execx.Runner
}

func (b *BuildTool) program() string {
	if b.Program == "" {
		return "mvn"
	}
	return b.Program
}

func (b *BuildTool) invoke(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := b.Runner.Run(ctx, b.program(), args, execx.WithWorkingDir(dir))
	out := ""
	if res != nil {
		out = res.Combined
	}
	return out, err
}

// Compile runs the compile goal against the checked-out source tree.
func (b *BuildTool) Compile(ctx context.Context, dir string) (string, error) {
	return b.invoke(ctx, dir, "compile")
}

// Test runs the full test suite.
func (b *BuildTool) Test(ctx context.Context, dir string) (string, error) {
	return b.invoke(ctx, dir, "test")
}

// Package produces the deployable archive. skipTests bypasses the test
// suite's gating for this invocation only; the pipeline uses it after the
// Test stage has already gated the run, never as a way around Test itself.
func (b *BuildTool) Package(ctx context.Context, dir string, skipTests bool) (string, error) {
	args := []string{"package"}
	if skipTests {
		args = append(args, "-DskipTests")
	}
	return b.invoke(ctx, dir, args...)
}

// Build is the compile stage.
type Build struct {
	Tool *BuildTool
}

func (s *Build) Name() string { return pipeline.StageBuild }

func (s *Build) Run(ctx context.Context, rc *pipeline.RunContext) (string, error) {
	out, err := s.Tool.Compile(ctx, SourceDir(rc.Workspace))
	if err != nil {
		return out, fmt.Errorf("compile: %w", err)
	}
	return out, nil
}

// Test is the test stage.
type Test struct {
	Tool *BuildTool
}

func (s *Test) Name() string { return pipeline.StageTest }

func (s *Test) Run(ctx context.Context, rc *pipeline.RunContext) (string, error) {
	out, err := s.Tool.Test(ctx, SourceDir(rc.Workspace))
	if err != nil {
		return out, fmt.Errorf("test suite: %w", err)
	}
	return out, nil
}

// Package produces the Artifact consumed by the Image stage. Tests are
// skipped here because the Test stage already gated the run.
type Package struct {
	Tool *BuildTool
	// ArtifactGlob locates the packaged archive relative to the source
	// tree, e.g. "target/*.jar".
	ArtifactGlob string
}

func (s *Package) Name() string { return pipeline.StagePackage }

func (s *Package) Run(ctx context.Context, rc *pipeline.RunContext) (string, error) {
	dir := SourceDir(rc.Workspace)
	out, err := s.Tool.Package(ctx, dir, true)
	if err != nil {
		return out, fmt.Errorf("package: %w", err)
	}

	glob := s.ArtifactGlob
	if glob == "" {
		glob = "target/*.jar"
	}
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return out, fmt.Errorf("locate artifact %q: %w", glob, err)
	}
	if len(matches) == 0 {
		return out, fmt.Errorf("no artifact matched %q after packaging", glob)
	}
	path := matches[0]
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		return out, fmt.Errorf("artifact %s is missing or empty", path)
	}

	rc.Artifact = &pipeline.Artifact{
		Name: filepath.Base(path),
		Path: path,
	}
	return out, nil
}

package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/pipeline"
)

// fakeRunner records invocations and replays canned results.
type fakeRunner struct {
	calls []call
	fail  bool
	out   string
}

type call struct {
	program string
	args    []string
	dir     string
}

func (r *fakeRunner) Run(_ context.Context, program string, args []string, opts ...execx.Option) (*execx.Result, error) {
	o := execx.Options{}
	for _, opt := range opts {
		opt(&o)
	}
	r.calls = append(r.calls, call{program: program, args: args, dir: o.WorkingDir})
	if r.fail {
		return &execx.Result{Combined: r.out, ExitCode: 1}, fmt.Errorf("exit status 1")
	}
	return &execx.Result{Stdout: r.out, Combined: r.out}, nil
}

func (r *fakeRunner) last() call {
	return r.calls[len(r.calls)-1]
}

func TestBuildTool_Goals(t *testing.T) {
	tests := []struct {
		name     string
		invoke   func(b *BuildTool) error
		wantArgs []string
	}{
		{
			name: "compile",
			invoke: func(b *BuildTool) error {
				_, err := b.Compile(context.Background(), "/ws/src")
				return err
			},
			wantArgs: []string{"compile"},
		},
		{
			name: "test",
			invoke: func(b *BuildTool) error {
				_, err := b.Test(context.Background(), "/ws/src")
				return err
			},
			wantArgs: []string{"test"},
		},
		{
			name: "package skipping tests",
			invoke: func(b *BuildTool) error {
				_, err := b.Package(context.Background(), "/ws/src", true)
				return err
			},
			wantArgs: []string{"package", "-DskipTests"},
		},
		{
			name: "package with tests",
			invoke: func(b *BuildTool) error {
				_, err := b.Package(context.Background(), "/ws/src", false)
				return err
			},
			wantArgs: []string{"package"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{out: "BUILD SUCCESS"}
			b := &BuildTool{Runner: runner}
			if err := tc.invoke(b); err != nil {
				t.Fatalf("invoke: %v", err)
			}
			got := runner.last()
			if got.program != "mvn" {
				t.Fatalf("program = %q, want mvn", got.program)
			}
			if strings.Join(got.args, " ") != strings.Join(tc.wantArgs, " ") {
				t.Fatalf("args = %v, want %v", got.args, tc.wantArgs)
			}
			if got.dir != "/ws/src" {
				t.Fatalf("working dir = %q, want /ws/src", got.dir)
			}
		})
	}
}

func TestBuildStage_FailureCarriesOutput(t *testing.T) {
	runner := &fakeRunner{fail: true, out: "compilation error at Foo.java:3"}
	s := &Build{Tool: &BuildTool{Runner: runner}}
	rc := &pipeline.RunContext{BuildNumber: 1, Workspace: "/ws"}

	out, err := s.Run(context.Background(), rc)
	if err == nil {
		t.Fatalf("expected compile failure")
	}
	if !strings.Contains(out, "Foo.java:3") {
		t.Fatalf("captured output = %q, diagnostics lost", out)
	}
}

func TestPackageStage_LocatesArtifact(t *testing.T) {
	ws := t.TempDir()
	target := filepath.Join(SourceDir(ws), "target")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	jar := filepath.Join(target, "inventory-app-1.0.jar")
	if err := os.WriteFile(jar, []byte("PK\x03\x04 fake archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{out: "BUILD SUCCESS"}
	s := &Package{Tool: &BuildTool{Runner: runner}}
	rc := &pipeline.RunContext{BuildNumber: 5, Workspace: ws}

	if _, err := s.Run(context.Background(), rc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rc.Artifact == nil {
		t.Fatalf("artifact not published to run context")
	}
	if rc.Artifact.Name != "inventory-app-1.0.jar" {
		t.Fatalf("artifact name = %q", rc.Artifact.Name)
	}
	if rc.Artifact.Path != jar {
		t.Fatalf("artifact path = %q, want %q", rc.Artifact.Path, jar)
	}
	if !contains(runner.last().args, "-DskipTests") {
		t.Fatalf("package stage must skip the already-gated test suite, args = %v", runner.last().args)
	}
}

func TestPackageStage_MissingArtifactFails(t *testing.T) {
	ws := t.TempDir()
	if err := os.MkdirAll(SourceDir(ws), 0o755); err != nil {
		t.Fatal(err)
	}

	s := &Package{Tool: &BuildTool{Runner: &fakeRunner{out: "BUILD SUCCESS"}}}
	rc := &pipeline.RunContext{BuildNumber: 5, Workspace: ws}

	if _, err := s.Run(context.Background(), rc); err == nil {
		t.Fatalf("expected failure when no artifact matches the glob")
	}
}

func TestPackageStage_EmptyArtifactFails(t *testing.T) {
	ws := t.TempDir()
	target := filepath.Join(SourceDir(ws), "target")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "app.jar"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := &Package{Tool: &BuildTool{Runner: &fakeRunner{out: "BUILD SUCCESS"}}}
	rc := &pipeline.RunContext{BuildNumber: 5, Workspace: ws}

	if _, err := s.Run(context.Background(), rc); err == nil {
		t.Fatalf("expected failure for zero-byte artifact")
	}
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/pipeline"
	"github.com/opencontainers/go-digest"
)

// Image wraps the packaged artifact into an immutable container image tagged
// with the run's build number. The tag comes solely from the build number,
// so it strictly increases across successful runs and is never reused.
type Image struct {
	ImageName string
	Program   string // defaults to "docker"
	Runner    execx.Runner
}

func (s *Image) Name() string { return pipeline.StageImage }

func (s *Image) program() string {
	if s.Program == "" {
		return "docker"
	}
	return s.Program
}

func (s *Image) Run(ctx context.Context, rc *pipeline.RunContext) (string, error) {
	if rc.Artifact == nil {
		return "", fmt.Errorf("no artifact available; package stage did not run")
	}

	d, err := digestFile(rc.Artifact.Path)
	if err != nil {
		return "", fmt.Errorf("artifact %s is malformed: %w", rc.Artifact.Name, err)
	}
	rc.Artifact.Digest = d.String()

	ref := pipeline.ImageRef{Name: s.ImageName, Tag: strconv.Itoa(rc.BuildNumber)}
	res, err := s.Runner.Run(ctx, s.program(),
		[]string{"build", "-t", ref.String(), SourceDir(rc.Workspace)})
	out := ""
	if res != nil {
		out = res.Combined
	}
	if err != nil {
		return out, fmt.Errorf("image build %s: %w", ref.String(), err)
	}

	rc.Image = &ref
	return out, nil
}

func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	digester := digest.SHA256.Digester()
	if _, err := io.Copy(digester.Hash(), f); err != nil {
		return "", err
	}
	return digester.Digest(), nil
}

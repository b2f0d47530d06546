package stage

import (
	"context"
	"fmt"

	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/pipeline"
)

// Deploy invokes a declarative configuration-management run restricted to
// the deploy tag subset against the supplied inventory. Failure is fatal to
// the run; rollback is a separate, explicit re-deploy with a prior tag.
type Deploy struct {
	InventoryFile string
	PlaybookFile  string
	Tags          []string
	Program       string // defaults to "ansible-playbook"
	Runner        execx.Runner
}

func (s *Deploy) Name() string { return pipeline.StageDeploy }

func (s *Deploy) program() string {
	if s.Program == "" {
		return "ansible-playbook"
	}
	return s.Program
}

func (s *Deploy) tags() []string {
	if len(s.Tags) == 0 {
		return []string{"deploy"}
	}
	return s.Tags
}

func (s *Deploy) Run(ctx context.Context, rc *pipeline.RunContext) (string, error) {
	if rc.Image == nil {
		return "", fmt.Errorf("no image available; image stage did not run")
	}
	return s.Apply(ctx, *rc.Image)
}

// Apply runs the configuration-management play for the given image. It is
// exposed separately so a rollback can re-apply a prior ImageRef without a
// full pipeline run.
func (s *Deploy) Apply(ctx context.Context, ref pipeline.ImageRef) (string, error) {
	args := []string{"-i", s.InventoryFile, s.PlaybookFile}
	for _, t := range s.tags() {
		args = append(args, "--tags", t)
	}
	args = append(args, "--extra-vars", fmt.Sprintf("image_name=%s image_tag=%s", ref.Name, ref.Tag))

	res, err := s.Runner.Run(ctx, s.program(), args)
	out := ""
	if res != nil {
		out = res.Combined
	}
	if err != nil {
		return out, fmt.Errorf("configuration run %s: %w", s.PlaybookFile, err)
	}
	return out, nil
}

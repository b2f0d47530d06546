package store

import (
	"context"
	"testing"

	"github.com/loykin/shiprun/internal/pipeline"
)

type okStage struct{ name string }

func (s okStage) Name() string { return s.name }

func (s okStage) Run(_ context.Context, rc *pipeline.RunContext) (string, error) {
	if s.name == pipeline.StageImage {
		rc.Image = &pipeline.ImageRef{Name: "inventory-app", Tag: "1"}
	}
	return "ok", nil
}

type quietNotifier struct{}

func (quietNotifier) NotifySuccess(*pipeline.Run) {}
func (quietNotifier) NotifyFailure(*pipeline.Run) {}

// End-to-end: a pipeline run recorded through the adapter lands in the store.
func TestRecorder_PersistsPipelineRun(t *testing.T) {
	st := openTestStore(t)

	stages := []pipeline.Stage{
		okStage{name: pipeline.StageCheckout},
		okStage{name: pipeline.StageImage},
	}
	p := pipeline.New(stages,
		pipeline.WithRecorder(&Recorder{Store: st}),
		pipeline.WithNotifier(quietNotifier{}),
		pipeline.WithCleanup(func(*pipeline.RunContext) error { return nil }),
	)

	if _, err := p.Run(context.Background(), 1, "main", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	r, err := st.GetRun(1)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if r == nil {
		t.Fatalf("run was not persisted")
	}
	if r.Status != "succeeded" {
		t.Fatalf("persisted status = %q, want succeeded", r.Status)
	}
	if r.ImageRef != "inventory-app:1" {
		t.Fatalf("persisted image ref = %q", r.ImageRef)
	}
	if r.StartedAt == "" || r.FinishedAt == "" {
		t.Fatalf("timestamps not persisted: %+v", r)
	}

	got, err := st.ListStages(1)
	if err != nil {
		t.Fatalf("ListStages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("persisted %d stage records, want 2", len(got))
	}
	if got[0].Stage != pipeline.StageCheckout || got[1].Stage != pipeline.StageImage {
		t.Fatalf("stage order lost: %+v", got)
	}
}

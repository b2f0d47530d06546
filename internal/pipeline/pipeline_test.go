package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

// fakeStage succeeds or fails on demand and records whether it ran.
type fakeStage struct {
	name   string
	fail   bool
	ran    bool
	output string
	run    func(rc *RunContext)
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(_ context.Context, rc *RunContext) (string, error) {
	f.ran = true
	if f.run != nil {
		f.run(rc)
	}
	if f.fail {
		return f.output, fmt.Errorf("boom")
	}
	return f.output, nil
}

// countingNotifier records terminal notifications.
type countingNotifier struct {
	success int
	failure int
}

func (n *countingNotifier) NotifySuccess(*Run) { n.success++ }
func (n *countingNotifier) NotifyFailure(*Run) { n.failure++ }

func sixStages(failAt int) []*fakeStage {
	names := []string{StageCheckout, StageBuild, StageTest, StagePackage, StageImage, StageDeploy}
	stages := make([]*fakeStage, len(names))
	for i, n := range names {
		stages[i] = &fakeStage{name: n, fail: i == failAt}
	}
	return stages
}

func asStages(fs []*fakeStage) []Stage {
	out := make([]Stage, len(fs))
	for i := range fs {
		out[i] = fs[i]
	}
	return out
}

func TestPipeline_FailureHaltsLaterStages(t *testing.T) {
	for failAt := 0; failAt < 6; failAt++ {
		t.Run(fmt.Sprintf("fail_at_%d", failAt), func(t *testing.T) {
			fakes := sixStages(failAt)
			cleanups := 0
			notifier := &countingNotifier{}
			p := New(asStages(fakes),
				WithNotifier(notifier),
				WithCleanup(func(*RunContext) error { cleanups++; return nil }),
			)

			run, err := p.Run(context.Background(), 7, "main", "")
			if err == nil {
				t.Fatalf("expected run error")
			}
			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("expected StageError, got %T", err)
			}
			if se.Stage != fakes[failAt].name {
				t.Fatalf("StageError.Stage = %q, want %q", se.Stage, fakes[failAt].name)
			}

			for i, f := range fakes {
				wantRan := i <= failAt
				if f.ran != wantRan {
					t.Fatalf("stage %d ran=%v, want %v", i, f.ran, wantRan)
				}
			}
			for i := range run.Stages {
				var want Status
				switch {
				case i < failAt:
					want = StatusSucceeded
				case i == failAt:
					want = StatusFailed
				default:
					want = StatusPending
				}
				if run.Stages[i].Status != want {
					t.Fatalf("stage %d status = %s, want %s", i, run.Stages[i].Status, want)
				}
			}
			if run.Status != StatusFailed {
				t.Fatalf("run status = %s, want failed", run.Status)
			}
			if cleanups != 1 {
				t.Fatalf("cleanup ran %d times, want exactly 1", cleanups)
			}
			if notifier.failure != 1 || notifier.success != 0 {
				t.Fatalf("notifications success=%d failure=%d, want exactly one failure",
					notifier.success, notifier.failure)
			}
		})
	}
}

func TestPipeline_AllStagesSucceed(t *testing.T) {
	fakes := sixStages(-1)
	// the image stage publishes the ImageRef tagged with the build number
	fakes[4].run = func(rc *RunContext) {
		rc.Image = &ImageRef{Name: "inventory-app", Tag: strconv.Itoa(rc.BuildNumber)}
	}
	var deployedWith *ImageRef
	fakes[5].run = func(rc *RunContext) {
		deployedWith = rc.Image
	}

	cleanups := 0
	notifier := &countingNotifier{}
	p := New(asStages(fakes),
		WithNotifier(notifier),
		WithCleanup(func(*RunContext) error { cleanups++; return nil }),
	)

	run, err := p.Run(context.Background(), 42, "main", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != StatusSucceeded {
		t.Fatalf("run status = %s, want succeeded", run.Status)
	}
	if run.ImageRef != "inventory-app:42" {
		t.Fatalf("run image ref = %q, want inventory-app:42", run.ImageRef)
	}
	if deployedWith == nil || deployedWith.Tag != "42" {
		t.Fatalf("deploy saw image %+v, want tag 42", deployedWith)
	}
	for i := range run.Stages {
		if run.Stages[i].Status != StatusSucceeded {
			t.Fatalf("stage %d status = %s, want succeeded", i, run.Stages[i].Status)
		}
	}
	if cleanups != 1 {
		t.Fatalf("cleanup ran %d times, want exactly 1", cleanups)
	}
	if notifier.success != 1 || notifier.failure != 0 {
		t.Fatalf("notifications success=%d failure=%d, want exactly one success",
			notifier.success, notifier.failure)
	}
}

func TestPipeline_StageErrorCarriesOutput(t *testing.T) {
	failing := &fakeStage{name: StageBuild, fail: true, output: "compiler said no"}
	p := New([]Stage{failing}, WithNotifier(&countingNotifier{}))

	_, err := p.Run(context.Background(), 1, "main", "")
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Output != "compiler said no" {
		t.Fatalf("StageError.Output = %q", se.Output)
	}
}

// recordingRecorder captures recorder calls.
type recordingRecorder struct {
	created  []int
	stages   []StageStatus
	finished []*Run
}

func (r *recordingRecorder) CreateRun(run *Run) error {
	r.created = append(r.created, run.BuildNumber)
	return nil
}

func (r *recordingRecorder) RecordStage(_ int, st StageStatus) error {
	r.stages = append(r.stages, st)
	return nil
}

func (r *recordingRecorder) FinishRun(run *Run) error {
	r.finished = append(r.finished, run)
	return nil
}

func TestPipeline_RecorderSeesAttemptedStagesOnly(t *testing.T) {
	fakes := sixStages(2) // test stage fails
	rec := &recordingRecorder{}
	p := New(asStages(fakes),
		WithNotifier(&countingNotifier{}),
		WithRecorder(rec),
		WithCleanup(func(*RunContext) error { return nil }),
	)

	_, _ = p.Run(context.Background(), 9, "main", "")

	if len(rec.created) != 1 || rec.created[0] != 9 {
		t.Fatalf("created runs = %v, want [9]", rec.created)
	}
	if len(rec.stages) != 3 {
		t.Fatalf("recorded %d stage results, want 3 (checkout, build, test)", len(rec.stages))
	}
	if rec.stages[2].Status != StatusFailed {
		t.Fatalf("last recorded stage status = %s, want failed", rec.stages[2].Status)
	}
}

// failingCreateRecorder rejects CreateRun to simulate an unavailable store.
type failingCreateRecorder struct {
	recordingRecorder
}

func (r *failingCreateRecorder) CreateRun(*Run) error {
	return fmt.Errorf("store unavailable")
}

func TestPipeline_CreateRunFailureTakesFailurePath(t *testing.T) {
	fakes := sixStages(-1)
	notifier := &countingNotifier{}
	cleanups := 0
	rec := &failingCreateRecorder{}
	p := New(asStages(fakes),
		WithNotifier(notifier),
		WithRecorder(rec),
		WithCleanup(func(*RunContext) error { cleanups++; return nil }),
	)

	run, err := p.Run(context.Background(), 3, "main", "")
	if err == nil {
		t.Fatalf("expected run error")
	}
	for _, f := range fakes {
		if f.ran {
			t.Fatalf("stage %s ran despite the recording failure", f.name)
		}
	}
	if run.Status != StatusFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
	if cleanups != 1 {
		t.Fatalf("cleanup ran %d times, want 1", cleanups)
	}
	if notifier.failure != 1 || notifier.success != 0 {
		t.Fatalf("notifications = %d failure / %d success, want 1 / 0", notifier.failure, notifier.success)
	}
	if len(rec.finished) != 1 || rec.finished[0].Status != StatusFailed {
		t.Fatalf("finished runs = %v, want one failed run", rec.finished)
	}
}

func TestPipeline_StageTimeout(t *testing.T) {
	stages := []Stage{stageFunc{name: StageBuild, fn: func(ctx context.Context, _ *RunContext) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "", nil
		}
	}}}

	p := New(stages,
		WithNotifier(&countingNotifier{}),
		WithStageTimeout(20*time.Millisecond),
	)
	start := time.Now()
	_, err := p.Run(context.Background(), 1, "main", "")
	if err == nil {
		t.Fatalf("expected timeout failure")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("stage was not bounded by the timeout")
	}
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, rc *RunContext) (string, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Run(ctx context.Context, rc *RunContext) (string, error) {
	return s.fn(ctx, rc)
}

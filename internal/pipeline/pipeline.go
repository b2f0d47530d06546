// Package pipeline sequences the fixed stage order of one build: checkout,
// build, test, package, image, deploy. Execution is strictly sequential and
// halts on the first stage failure; cleanup runs exactly once after the last
// attempted stage, then exactly one of the two notifications is emitted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/loykin/shiprun/internal/common"
)

// Pipeline executes stages for successive runs. Stages are fixed at
// construction time; per-run state lives in the Run and RunContext only, so
// concurrent runs on isolated workspaces are safe.
type Pipeline struct {
	stages       []Stage
	cleanup      func(rc *RunContext) error
	notifier     Notifier
	recorder     Recorder
	observer     Observer
	stageTimeout time.Duration
	logger       *common.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifier replaces the default log notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithRecorder attaches a run history recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithStageTimeout bounds each stage invocation with a deadline. Zero means
// no bound.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.stageTimeout = d }
}

// WithCleanup replaces the default workspace reset.
func WithCleanup(fn func(rc *RunContext) error) Option {
	return func(p *Pipeline) { p.cleanup = fn }
}

// New creates a Pipeline over the given ordered stages.
func New(stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages:   stages,
		cleanup:  resetWorkspace,
		notifier: NewLogNotifier(),
		logger:   common.GetLogger().WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// resetWorkspace is the default cleanup action: it removes the run's
// workspace. The run owns the workspace exclusively, so this is safe even
// after a mid-stage failure.
func resetWorkspace(rc *RunContext) error {
	if rc.Workspace == "" {
		return nil
	}
	return os.RemoveAll(rc.Workspace)
}

// Run executes one pipeline run identified by buildNumber. The build number
// is assigned by the caller (normally allocated from the run store) and is
// never reused. The returned Run is terminal: every stage either succeeded,
// failed, or was never attempted and remains pending.
func (p *Pipeline) Run(ctx context.Context, buildNumber int, sourceRef, workspace string) (*Run, error) {
	run := &Run{
		BuildNumber: buildNumber,
		SourceRef:   sourceRef,
		Status:      StatusRunning,
		StartTime:   time.Now(),
		Stages:      make([]StageStatus, len(p.stages)),
	}
	for i, s := range p.stages {
		run.Stages[i] = StageStatus{Name: s.Name(), Status: StatusPending}
	}

	rc := &RunContext{
		BuildNumber: buildNumber,
		SourceRef:   sourceRef,
		Workspace:   workspace,
	}

	logger := p.logger.WithBuild(buildNumber)
	logger.Info("pipeline run starting", "source_ref", sourceRef, "stages", len(p.stages))

	// A recording failure aborts the run before any stage executes, but it
	// still goes through the shared failure path below so cleanup and the
	// failure notification are not skipped.
	var failure error
	if p.recorder != nil {
		if err := p.recorder.CreateRun(run); err != nil {
			failure = fmt.Errorf("record run %d: %w", buildNumber, err)
		}
	}

	if failure == nil {
		for i := range p.stages {
			if err := p.executeStage(ctx, p.stages[i], run, &run.Stages[i], rc); err != nil {
				failure = err
				break
			}
		}
	}

	run.EndTime = time.Now()
	if failure != nil {
		run.Status = StatusFailed
	} else {
		run.Status = StatusSucceeded
		if rc.Image != nil {
			run.ImageRef = rc.Image.String()
		}
	}

	// Cleanup runs unconditionally, exactly once, after the last attempted
	// stage and before the notification.
	if err := p.cleanup(rc); err != nil {
		logger.Warn("workspace cleanup failed", "error", err)
	}

	if p.recorder != nil {
		if err := p.recorder.FinishRun(run); err != nil {
			logger.Warn("failed to finalize run record", "error", err)
		}
	}
	if p.observer != nil {
		p.observer.ObserveRun(buildNumber, run.EndTime.Sub(run.StartTime), failure == nil)
	}

	if failure != nil {
		p.notifier.NotifyFailure(run)
		return run, failure
	}
	p.notifier.NotifySuccess(run)
	return run, nil
}

func (p *Pipeline) executeStage(ctx context.Context, stage Stage, run *Run, st *StageStatus, rc *RunContext) error {
	logger := p.logger.WithBuild(run.BuildNumber).WithStage(stage.Name())
	logger.Info("stage starting")

	st.Status = StatusRunning
	st.StartTime = time.Now()

	stageCtx := ctx
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	output, err := stage.Run(stageCtx, rc)

	st.EndTime = time.Now()
	st.Duration = st.EndTime.Sub(st.StartTime)
	st.Output = output

	if p.observer != nil {
		p.observer.ObserveStage(run.BuildNumber, stage.Name(), st.Duration, err == nil)
	}

	if err != nil {
		st.Status = StatusFailed
		st.Error = err.Error()
		logger.Error("stage failed", "error", err, "duration", st.Duration)
		p.recordStage(run.BuildNumber, *st, logger)

		var se *StageError
		if errors.As(err, &se) {
			return se
		}
		return &StageError{Stage: stage.Name(), Output: output, Err: err}
	}

	st.Status = StatusSucceeded
	logger.Info("stage succeeded", "duration", st.Duration)
	p.recordStage(run.BuildNumber, *st, logger)
	return nil
}

func (p *Pipeline) recordStage(buildNumber int, st StageStatus, logger *common.Logger) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordStage(buildNumber, st); err != nil {
		logger.Warn("failed to record stage result", "error", err)
	}
}

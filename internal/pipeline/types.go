package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Status is the outcome of a stage or of a whole run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Fixed stage order of one pipeline run.
const (
	StageCheckout = "checkout"
	StageBuild    = "build"
	StageTest     = "test"
	StagePackage  = "package"
	StageImage    = "image"
	StageDeploy   = "deploy"
)

// Artifact is the packaged build output handed from the Package stage to the
// Image stage. Digest is computed over the archive contents.
type Artifact struct {
	Name   string
	Path   string
	Digest string
}

// ImageRef identifies a built container image. Tag is always the run's build
// number, so tags strictly increase across successful runs and are never
// reused.
type ImageRef struct {
	Name string
	Tag  string
}

// String returns the name:tag form used by the container engine.
func (r ImageRef) String() string {
	return r.Name + ":" + r.Tag
}

// RunContext carries per-run state between stages. Each stage consumes what
// the previous one produced; the workspace is owned exclusively by this run.
type RunContext struct {
	BuildNumber int
	SourceRef   string
	Workspace   string
	Artifact    *Artifact
	Image       *ImageRef
}

// StageStatus records one stage's outcome within a run.
type StageStatus struct {
	Name      string
	Status    Status
	Output    string
	Error     string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Run is the record of one pipeline invocation. Identity is the build
// number; the record is terminal once Status is succeeded or failed and is
// never reused.
type Run struct {
	BuildNumber int
	SourceRef   string
	ImageRef    string
	Status      Status
	Stages      []StageStatus
	StartTime   time.Time
	EndTime     time.Time
}

// StageByName returns the status entry for the named stage, or nil.
func (r *Run) StageByName(name string) *StageStatus {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// StageError is the failure of a single stage, carrying the stage name and
// the captured diagnostic output so a failure can be understood without
// re-running.
type StageError struct {
	Stage  string
	Output string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Stage is one discrete step of the pipeline. Run either completes or
// returns an error; there is no partial success.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) (output string, err error)
}

// Notifier emits the terminal success or failure signal, exactly one per run.
type Notifier interface {
	NotifySuccess(run *Run)
	NotifyFailure(run *Run)
}

// Recorder persists run and stage outcomes. A nil Recorder disables
// persistence.
type Recorder interface {
	CreateRun(run *Run) error
	RecordStage(buildNumber int, st StageStatus) error
	FinishRun(run *Run) error
}

// Observer receives timing samples for completed stages and runs.
type Observer interface {
	ObserveStage(buildNumber int, stage string, d time.Duration, succeeded bool)
	ObserveRun(buildNumber int, d time.Duration, succeeded bool)
}

package store

import (
	"time"

	"github.com/loykin/shiprun/internal/pipeline"
)

// Recorder adapts a Store to the pipeline's Recorder interface.
type Recorder struct {
	Store *Store
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (r *Recorder) CreateRun(run *pipeline.Run) error {
	return r.Store.CreateRun(RunRecord{
		BuildNumber: run.BuildNumber,
		SourceRef:   run.SourceRef,
		Status:      string(run.Status),
		StartedAt:   formatTime(run.StartTime),
	})
}

func (r *Recorder) RecordStage(buildNumber int, st pipeline.StageStatus) error {
	return r.Store.RecordStage(StageRecord{
		BuildNumber: buildNumber,
		Stage:       st.Name,
		Status:      string(st.Status),
		Output:      st.Output,
		Error:       st.Error,
		StartedAt:   formatTime(st.StartTime),
		FinishedAt:  formatTime(st.EndTime),
	})
}

func (r *Recorder) FinishRun(run *pipeline.Run) error {
	return r.Store.FinishRun(run.BuildNumber, string(run.Status), run.ImageRef, formatTime(run.EndTime))
}

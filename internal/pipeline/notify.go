package pipeline

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/shiprun/internal/common"
)

// LogNotifier reports the terminal run outcome through the default logger.
type LogNotifier struct {
	logger *common.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: common.GetLogger().WithComponent("notify")}
}

func (n *LogNotifier) NotifySuccess(run *Run) {
	n.logger.Info("pipeline run succeeded",
		"build", run.BuildNumber,
		"image_ref", run.ImageRef,
		"duration", run.EndTime.Sub(run.StartTime))
}

func (n *LogNotifier) NotifyFailure(run *Run) {
	n.logger.Error("pipeline run failed",
		"build", run.BuildNumber,
		"failed_stage", firstFailedStage(run),
		"duration", run.EndTime.Sub(run.StartTime))
}

// firstFailedStage returns the name of the earliest failed stage. Execution
// stops at the first failure, so there is at most one.
func firstFailedStage(run *Run) string {
	for i := range run.Stages {
		if run.Stages[i].Status == StatusFailed {
			return run.Stages[i].Name
		}
	}
	return ""
}

// WebhookNotifier posts the run outcome to an HTTP endpoint in addition to
// logging it. Delivery failures are logged, never retried, and never alter
// the run result.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	log    *LogNotifier
}

// NewWebhookNotifier creates a notifier that posts to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New().SetTimeout(10 * time.Second)
	return &WebhookNotifier{url: url, client: client, log: NewLogNotifier()}
}

func (n *WebhookNotifier) NotifySuccess(run *Run) {
	n.log.NotifySuccess(run)
	n.post(run, "succeeded")
}

func (n *WebhookNotifier) NotifyFailure(run *Run) {
	n.log.NotifyFailure(run)
	n.post(run, "failed")
}

func (n *WebhookNotifier) post(run *Run, status string) {
	body := map[string]interface{}{
		"build":      run.BuildNumber,
		"status":     status,
		"source_ref": run.SourceRef,
		"image_ref":  run.ImageRef,
		"duration":   run.EndTime.Sub(run.StartTime).String(),
	}
	resp, err := n.client.R().SetBody(body).Post(n.url)
	if err != nil {
		n.log.logger.Warn("notification delivery failed", "url", n.url, "error", err)
		return
	}
	if resp.IsError() {
		n.log.logger.Warn("notification rejected",
			"url", n.url, "status", fmt.Sprintf("%d", resp.StatusCode()))
	}
}

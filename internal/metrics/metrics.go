// Package metrics pushes per-run pipeline measurements to the Pushgateway
// so the metrics backend sees pipeline activity alongside the application's
// own runtime metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/loykin/shiprun/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "shiprun"

// Recorder implements the pipeline Observer by pushing stage and run
// durations to a Pushgateway. Push failures are logged and otherwise
// ignored: metrics never affect a run's outcome.
type Recorder struct {
	gatewayURL string
	logger     *common.Logger

	stageDuration *prometheus.GaugeVec
	runDuration   prometheus.Gauge
	runResult     *prometheus.GaugeVec
}

// NewRecorder creates a Recorder pushing to the given Pushgateway address.
func NewRecorder(gatewayURL string) *Recorder {
	return &Recorder{
		gatewayURL: gatewayURL,
		logger:     common.GetLogger().WithComponent("metrics"),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiprun_stage_duration_seconds",
			Help: "Duration of the last execution of each pipeline stage.",
		}, []string{"stage", "result"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shiprun_run_duration_seconds",
			Help: "Duration of the last pipeline run.",
		}),
		runResult: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiprun_run_result",
			Help: "Outcome of the last pipeline run (1 for the observed result).",
		}, []string{"result"}),
	}
}

func resultLabel(succeeded bool) string {
	if succeeded {
		return "succeeded"
	}
	return "failed"
}

// ObserveStage records one completed stage.
func (r *Recorder) ObserveStage(buildNumber int, stage string, d time.Duration, succeeded bool) {
	r.stageDuration.WithLabelValues(stage, resultLabel(succeeded)).Set(d.Seconds())
	r.push(buildNumber, r.stageDuration)
}

// ObserveRun records one completed run.
func (r *Recorder) ObserveRun(buildNumber int, d time.Duration, succeeded bool) {
	r.runDuration.Set(d.Seconds())
	r.runResult.WithLabelValues(resultLabel(succeeded)).Set(1)
	r.push(buildNumber, r.runDuration, r.runResult)
}

func (r *Recorder) push(buildNumber int, collectors ...prometheus.Collector) {
	if r.gatewayURL == "" {
		return
	}
	p := push.New(r.gatewayURL, jobName).
		Grouping("build", strconv.Itoa(buildNumber))
	for _, c := range collectors {
		p = p.Collector(c)
	}
	if err := p.Push(); err != nil {
		r.logger.Warn("metrics push failed", "gateway", r.gatewayURL, "error", err)
	}
}

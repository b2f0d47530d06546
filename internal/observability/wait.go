package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/shiprun/internal/common"
)

const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultWaitInterval = 2 * time.Second
)

// WaitConfig describes a readiness check against the application's health
// endpoint.
type WaitConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Status   int    `mapstructure:"status" yaml:"status"`
	Timeout  string `mapstructure:"timeout" yaml:"timeout"`
	Interval string `mapstructure:"interval" yaml:"interval"`
}

type waitParams struct {
	url      string
	expected int
	timeout  time.Duration
	interval time.Duration
}

func parseWaitConfig(wc WaitConfig) waitParams {
	expected := wc.Status
	if expected == 0 {
		expected = 200
	}

	timeout := DefaultWaitTimeout
	if s := strings.TrimSpace(wc.Timeout); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}

	interval := DefaultWaitInterval
	if s := strings.TrimSpace(wc.Interval); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			interval = d
		}
	}

	return waitParams{
		url:      strings.TrimSpace(wc.URL),
		expected: expected,
		timeout:  timeout,
		interval: interval,
	}
}

// WaitForHealthy polls the configured health endpoint until it returns the
// expected status or the timeout elapses. An empty URL disables the wait.
func WaitForHealthy(ctx context.Context, wc WaitConfig) error {
	p := parseWaitConfig(wc)
	if p.url == "" {
		return nil
	}

	logger := common.GetLogger().WithComponent("observability")
	logger.Info("waiting for application health", "url", p.url, "timeout", p.timeout)

	client := resty.New().SetTimeout(p.interval)
	deadline := time.Now().Add(p.timeout)
	var lastStatus int
	var lastErr error

	for time.Now().Before(deadline) {
		resp, err := client.R().SetContext(ctx).Get(p.url)
		if err == nil && resp.StatusCode() == p.expected {
			logger.Info("application healthy", "url", p.url, "status", resp.StatusCode())
			return nil
		}
		// Report whatever the most recent attempt observed, not an older
		// failure mode.
		if err != nil {
			lastErr = err
			lastStatus = 0
		} else {
			lastStatus = resp.StatusCode()
			lastErr = nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("health wait canceled: %w", ctx.Err())
		case <-time.After(p.interval):
		}
	}

	if lastErr != nil {
		return fmt.Errorf("health endpoint %s did not become ready: %w", p.url, lastErr)
	}
	return fmt.Errorf("health endpoint %s did not become ready: last status %d, expected %d",
		p.url, lastStatus, p.expected)
}

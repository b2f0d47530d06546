// Package observability bootstraps the metrics stack: it declares the
// default datasource in the visualization component and waits for the
// deployed application's health endpoint. It runs after provisioning and is
// independent of per-build pipeline runs.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/shiprun/internal/common"
	"github.com/tidwall/gjson"
)

// ConfigureError is a failed observability bootstrap step.
type ConfigureError struct {
	Step string
	Err  error
}

func (e *ConfigureError) Error() string {
	return fmt.Sprintf("observability bootstrap %s: %v", e.Step, e.Err)
}

func (e *ConfigureError) Unwrap() error {
	return e.Err
}

// Bootstrap configures Grafana to read from the Prometheus backend.
type Bootstrap struct {
	GrafanaURL    string
	Username      string
	Password      string
	PrometheusURL string
	client        *resty.Client
	logger        *common.Logger
}

// NewBootstrap creates a Bootstrap against the given Grafana instance.
func NewBootstrap(grafanaURL, username, password, prometheusURL string) *Bootstrap {
	client := resty.New().
		SetBaseURL(grafanaURL).
		SetBasicAuth(username, password).
		SetTimeout(15 * time.Second)
	return &Bootstrap{
		GrafanaURL:    grafanaURL,
		Username:      username,
		Password:      password,
		PrometheusURL: prometheusURL,
		client:        client,
		logger:        common.GetLogger().WithComponent("observability"),
	}
}

const datasourceName = "prometheus"

// Configure declares a single default Prometheus datasource pointing at the
// metrics backend. Reapplying is idempotent: an existing datasource with the
// same name is updated in place (last-write-wins).
func (b *Bootstrap) Configure(ctx context.Context) error {
	body := map[string]interface{}{
		"name":      datasourceName,
		"type":      "prometheus",
		"url":       b.PrometheusURL,
		"access":    "proxy",
		"isDefault": true,
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/datasources")
	if err != nil {
		return &ConfigureError{Step: "create datasource", Err: err}
	}

	switch {
	case resp.IsSuccess():
		id := gjson.GetBytes(resp.Body(), "datasource.id").Int()
		b.logger.Info("datasource created", "name", datasourceName, "id", id, "url", b.PrometheusURL)
		return nil
	case resp.StatusCode() == 409:
		// Already declared; update in place.
		return b.update(ctx, body)
	default:
		return &ConfigureError{
			Step: "create datasource",
			Err:  fmt.Errorf("grafana returned %d: %s", resp.StatusCode(), resp.String()),
		}
	}
}

func (b *Bootstrap) update(ctx context.Context, body map[string]interface{}) error {
	resp, err := b.client.R().
		SetContext(ctx).
		Get("/api/datasources/name/" + datasourceName)
	if err != nil {
		return &ConfigureError{Step: "lookup datasource", Err: err}
	}
	if !resp.IsSuccess() {
		return &ConfigureError{
			Step: "lookup datasource",
			Err:  fmt.Errorf("grafana returned %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	id := gjson.GetBytes(resp.Body(), "id").Int()
	if id == 0 {
		return &ConfigureError{
			Step: "lookup datasource",
			Err:  fmt.Errorf("datasource %s has no id in response", datasourceName),
		}
	}

	resp, err = b.client.R().
		SetContext(ctx).
		SetBody(body).
		Put(fmt.Sprintf("/api/datasources/%d", id))
	if err != nil {
		return &ConfigureError{Step: "update datasource", Err: err}
	}
	if !resp.IsSuccess() {
		return &ConfigureError{
			Step: "update datasource",
			Err:  fmt.Errorf("grafana returned %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	b.logger.Info("datasource updated", "name", datasourceName, "id", id, "url", b.PrometheusURL)
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/shiprun"
	"github.com/loykin/shiprun/internal/observability"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Configure the metrics datasource and wait for the application to report healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		doc, err := loadConfig()
		if err != nil {
			return err
		}

		obs := doc.Observability
		if strings.TrimSpace(obs.GrafanaURL) == "" || strings.TrimSpace(obs.PrometheusURL) == "" {
			return fmt.Errorf("observability.grafana_url and observability.prometheus_url are required")
		}

		if err := shiprun.ConfigureObservability(ctx,
			obs.GrafanaURL, obs.GrafanaUser, obs.GrafanaPassword, obs.PrometheusURL); err != nil {
			return err
		}

		return observability.WaitForHealthy(ctx, obs.Wait)
	},
}

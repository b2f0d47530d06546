package main

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loykin/shiprun"
	"github.com/loykin/shiprun/internal/metrics"
	"github.com/loykin/shiprun/internal/pipeline"
	"github.com/loykin/shiprun/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run: checkout, build, test, package, image, deploy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		doc, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStore(doc)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		stages, err := buildStages(doc)
		if err != nil {
			return err
		}

		var opts []pipeline.Option
		buildNumber := 1
		if st != nil {
			buildNumber, err = st.NextBuildNumber()
			if err != nil {
				return err
			}
			opts = append(opts, pipeline.WithRecorder(&store.Recorder{Store: st}))
		}
		if d := doc.StageTimeoutDuration(); d > 0 {
			opts = append(opts, pipeline.WithStageTimeout(d))
		}
		if url := strings.TrimSpace(doc.Notify.WebhookURL); url != "" {
			opts = append(opts, pipeline.WithNotifier(pipeline.NewWebhookNotifier(url)))
		}
		if gw := strings.TrimSpace(doc.Observability.PushgatewayURL); gw != "" {
			opts = append(opts, pipeline.WithObserver(metrics.NewRecorder(gw)))
		}

		ref := viper.GetString("ref")
		if ref == "" {
			ref = doc.Source.Ref
		}

		// Each run owns its workspace exclusively; isolating by build number
		// keeps concurrent runs from sharing one.
		workspace := filepath.Join(doc.Workspace, strconv.Itoa(buildNumber))

		p := shiprun.NewPipeline(stages, opts...)
		_, err = p.Run(ctx, buildNumber, ref, workspace)
		return err
	},
}

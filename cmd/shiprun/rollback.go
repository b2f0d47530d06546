package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/loykin/shiprun/internal/common"
	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Redeploy the image of a prior successful run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		doc, err := loadConfig()
		if err != nil {
			return err
		}

		buildNumber := viper.GetInt("build")
		if buildNumber <= 0 {
			return fmt.Errorf("--build must name a prior successful run")
		}

		st, err := openStore(doc)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("run history store is disabled; rollback needs it to resolve the image tag")
		}
		defer func() { _ = st.Close() }()

		run, err := st.GetRun(buildNumber)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("no run with build number %d", buildNumber)
		}
		if run.Status != string(pipeline.StatusSucceeded) || run.ImageRef == "" {
			return fmt.Errorf("run %d did not succeed; its image cannot be redeployed", buildNumber)
		}

		ref, err := parseImageRef(run.ImageRef)
		if err != nil {
			return err
		}

		logger := common.GetLogger().WithComponent("rollback")
		logger.Info("redeploying prior image", "build", buildNumber, "image_ref", run.ImageRef)

		deploy := newDeploy(doc, execx.NewRunner())
		out, err := deploy.Apply(ctx, ref)
		if err != nil {
			logger.Error("rollback deploy failed", "error", err, "output", out)
			return err
		}
		logger.Info("rollback deploy succeeded", "image_ref", run.ImageRef)
		return nil
	},
}

func parseImageRef(s string) (pipeline.ImageRef, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return pipeline.ImageRef{}, fmt.Errorf("malformed image reference %q", s)
	}
	tag := s[idx+1:]
	if _, err := strconv.Atoi(tag); err != nil {
		return pipeline.ImageRef{}, fmt.Errorf("image reference %q tag is not a build number", s)
	}
	return pipeline.ImageRef{Name: s[:idx], Tag: tag}, nil
}

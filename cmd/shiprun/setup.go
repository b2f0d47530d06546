package main

import (
	"fmt"
	"strings"

	"github.com/loykin/shiprun"
	"github.com/loykin/shiprun/cmd/shiprun/config"
	"github.com/loykin/shiprun/internal/common"
	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/pipeline"
	"github.com/loykin/shiprun/internal/stage"
	"github.com/spf13/viper"
)

// loadConfig reads the configuration document and applies its logging
// settings to the default logger.
func loadConfig() (*config.ConfigDoc, error) {
	path := viper.GetString("config")
	var doc config.ConfigDoc
	if err := doc.Load(path); err != nil {
		return nil, err
	}

	level := common.ParseLogLevel(doc.Logging.Level)
	if doc.Logging.Format == "json" {
		common.SetDefaultLogger(common.NewJSONLogger(level))
	} else {
		common.SetDefaultLogger(common.NewLogger(level))
	}
	return &doc, nil
}

// openStore opens the run history store from the document, or returns nil
// when disabled.
func openStore(doc *config.ConfigDoc) (*shiprun.Store, error) {
	if doc.Store.Disabled || viper.GetBool("no_store") {
		return nil, nil
	}
	cfg, err := doc.Store.ToStoreConfig(doc.Workspace)
	if err != nil {
		return nil, err
	}
	return shiprun.OpenStore(cfg)
}

// buildStages assembles the fixed stage order from the document.
func buildStages(doc *config.ConfigDoc) ([]pipeline.Stage, error) {
	if strings.TrimSpace(doc.Source.Repo) == "" {
		return nil, fmt.Errorf("source.repo is required")
	}
	if strings.TrimSpace(doc.Image.Name) == "" {
		return nil, fmt.Errorf("image.name is required")
	}
	if strings.TrimSpace(doc.Deploy.Inventory) == "" || strings.TrimSpace(doc.Deploy.Playbook) == "" {
		return nil, fmt.Errorf("deploy.inventory and deploy.playbook are required")
	}
	if _, err := stage.LoadInventory(doc.Deploy.Inventory); err != nil {
		return nil, err
	}

	runner := execx.NewRunner()
	tool := &stage.BuildTool{Program: doc.Build.Tool, Runner: runner}

	return []pipeline.Stage{
		&stage.Checkout{RepoURL: doc.Source.Repo},
		&stage.Build{Tool: tool},
		&stage.Test{Tool: tool},
		&stage.Package{Tool: tool, ArtifactGlob: doc.Build.ArtifactGlob},
		&stage.Image{ImageName: doc.Image.Name, Runner: runner},
		newDeploy(doc, runner),
	}, nil
}

func newDeploy(doc *config.ConfigDoc, runner execx.Runner) *stage.Deploy {
	return &stage.Deploy{
		InventoryFile: doc.Deploy.Inventory,
		PlaybookFile:  doc.Deploy.Playbook,
		Tags:          doc.Deploy.Tags,
		Runner:        runner,
	}
}

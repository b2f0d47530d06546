package main

import (
	"context"
	"fmt"

	"github.com/loykin/shiprun"
	"github.com/loykin/shiprun/internal/provision"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Idempotently install and verify the host toolchain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		doc, err := loadConfig()
		if err != nil {
			return err
		}

		p := shiprun.NewProvisioner()
		states, err := p.EnsureAll(ctx, shiprun.DefaultToolCatalog())
		if err != nil {
			return err
		}

		for _, tool := range shiprun.DefaultToolCatalog() {
			fmt.Printf("%-12s %s\n", tool.Name, states[tool.Name])
		}

		// The CI server writes its first-boot admin credential to a local
		// secrets file; surface it so the operator can finish setup.
		if states["jenkins"] == provision.StateInstalled {
			secret, err := provision.InitialAdminPassword(doc.Provision.SecretsFile)
			if err != nil {
				fmt.Printf("jenkins installed; initial admin password not readable yet: %v\n", err)
			} else {
				fmt.Printf("jenkins initial admin password: %s\n", secret)
			}
		}
		return nil
	},
}

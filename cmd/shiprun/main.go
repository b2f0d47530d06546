package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "shiprun",
	Short: "Build, package and deploy the inventory service through its pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./config/shiprun.yaml")
	v.SetDefault("ref", "")
	v.SetDefault("build", 0)
	v.SetDefault("no_store", false)

	// Environment variables support: SHIPRUN_CONFIG, ...
	v.SetEnvPrefix("SHIPRUN")
	v.AutomaticEnv()
	// Bind flags via Cobra and then bind to Viper
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to the shiprun config yaml")
	rootCmd.PersistentFlags().Bool("no-store", v.GetBool("no_store"), "do not persist run history")
	runCmd.Flags().String("ref", v.GetString("ref"), "source ref to build (branch, tag or commit; default from config)")
	rollbackCmd.Flags().Int("build", v.GetInt("build"), "build number of the prior successful run to redeploy")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("no_store", rootCmd.PersistentFlags().Lookup("no-store"))
	_ = v.BindPFlag("ref", runCmd.Flags().Lookup("ref"))
	_ = v.BindPFlag("build", rollbackCmd.Flags().Lookup("build"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}

package main

import (
	"fmt"

	"github.com/loykin/shiprun/pkg/status"
	"github.com/spf13/cobra"
)

var (
	statusHistory      bool
	statusHistoryAll   bool
	statusHistoryLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest build number and optionally run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStore(doc)
		if err != nil {
			return err
		}
		if st == nil {
			fmt.Println("Store is disabled - no run status available")
			return nil
		}
		defer func() { _ = st.Close() }()

		info, err := status.FromStore(st)
		if err != nil {
			return err
		}
		if statusHistory {
			fmt.Print(info.FormatHumanWithLimit(true, statusHistoryLimit, statusHistoryAll))
		} else {
			fmt.Print(info.FormatHuman(false))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "include run history")
	statusCmd.Flags().BoolVar(&statusHistoryAll, "all", false, "show all history entries")
	statusCmd.Flags().IntVar(&statusHistoryLimit, "limit", 10, "max history entries to show")
}

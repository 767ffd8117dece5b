package handlers

import (
	"github.com/spf13/cobra"

	"aidaily/internal/pipeline"
)

// NewBuzzCmd creates the hourly collection command.
func NewBuzzCmd() *cobra.Command {
	var noPush bool
	var topN int

	cmd := &cobra.Command{
		Use:   "buzz",
		Short: "Run one hourly collection round",
		Long: `Fetches every configured source, folds the results into the rolling
45-day archive, writes the 24h window files, and pushes the top picks to
the WeCom group and the Feishu table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			buzz := pipeline.NewBuzz(cfg)
			if topN > 0 {
				buzz.TopN = topN
			}
			return buzz.Run(cmd.Context(), !noPush)
		},
	}

	cmd.Flags().BoolVar(&noPush, "no-push", false, "skip the WeCom and Feishu deliveries")
	cmd.Flags().IntVar(&topN, "top-n", 20, "number of items in the WeCom digest")
	return cmd
}

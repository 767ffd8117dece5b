package handlers

import (
	"github.com/spf13/cobra"

	"aidaily/internal/pipeline"
)

// NewRunCmd creates the daily digest command.
func NewRunCmd() *cobra.Command {
	var noPublish bool
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate the daily AI news digest",
		Long: `Collects the last day of news, filters and deduplicates it, generates
Chinese summaries and title translations, classifies the items into the
five digest sections and renders the report. Unless disabled, the HTML
report is pushed to the WeChat Official Account draft box.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			daily := pipeline.NewDaily(cfg)
			return daily.Run(cmd.Context(), !noPublish && !localOnly)
		},
	}

	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "skip the WeChat draft-box publish")
	cmd.Flags().BoolVar(&localOnly, "local-only", false, "only write the report locally (alias of --no-publish)")
	return cmd
}

package handlers

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aidaily/internal/column"
)

// NewColumnCmd creates the deep-column command group.
func NewColumnCmd() *cobra.Command {
	var noPublish bool

	cmd := &cobra.Command{
		Use:   "column",
		Short: "Discover hot topics and generate deep-column articles",
	}
	cmd.PersistentFlags().BoolVar(&noPublish, "no-publish", false, "skip the WeChat draft-box publish")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the news window for hot topics and push the candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return column.NewPipeline(cfg).Discover(cmd.Context())
		},
	}

	generateCmd := &cobra.Command{
		Use:   "generate <topic-number>",
		Short: "Generate and publish the column for one candidate topic",
		Long: `Generates the column for the given topic number, as listed by discover.
Topic numbers start at 1; 0 skips this round.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			num, err := strconv.Atoi(args[0])
			if err != nil || num < 0 {
				return fmt.Errorf("invalid topic number %q", args[0])
			}
			if num == 0 {
				fmt.Println("跳过本次专栏")
				return nil
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return column.NewPipeline(cfg).Generate(cmd.Context(), num-1, !noPublish)
		},
	}

	autoCmd := &cobra.Command{
		Use:   "auto",
		Short: "Discover hot topics and generate the hottest one end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return column.NewPipeline(cfg).Auto(cmd.Context(), !noPublish)
		},
	}

	cmd.AddCommand(discoverCmd, generateCmd, autoCmd)
	return cmd
}

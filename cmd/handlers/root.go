// Package handlers defines the CLI commands: the daily digest run, the
// deep-column workflow and the hourly buzz round.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aidaily/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aidaily",
		Short: "aidaily collects AI news and publishes daily digests and deep columns",
		Long: `aidaily is the pipeline behind an AI news WeChat account. It collects
items from RSS feeds, scraped sites and the shared hourly archive, then
filters, deduplicates, summarizes, translates and classifies them into a
daily digest, discovers hot topics for long-form columns, and delivers
everything to the WeChat draft box, a WeCom group and a Feishu table.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aidaily.yaml)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewColumnCmd())
	rootCmd.AddCommand(NewBuzzCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "portalgpt",
		Short:         "Structured LLM completions over open-data portal metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file path (default: search ./cmd/portalgpt/config.yml, ./config.yml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Env file loaded before the config")

	rootCmd.AddCommand(
		newCompleteCmd(flags),
		newServeCmd(flags),
		newIngestCmd(flags),
		newTokenCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize warelay configuration with an interactive wizard",
	Long:  `Runs an interactive wizard and writes the answers to the config file (.warelay.yml by default). Secrets are read from the environment and never written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

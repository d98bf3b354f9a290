package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warelay",
	Short: "AI auto-reply relay for WhatsApp business webhooks",
	Long: `warelay receives signed WhatsApp webhooks from a business messaging
provider, asks an OpenAI model for a short reply, and sends that reply back
to the customer through the provider's messaging API.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

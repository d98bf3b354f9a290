package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/relay"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Generate a reply to a message without sending it",
	Long:  `Runs the reply generator once for the given customer message and prints the reply as it would be relayed. Nothing is sent to the provider.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("raw", false, "print the model output without WhatsApp formatting")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetBool("raw")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCompletion(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	gen, err := newGeneratorFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	text, err := gen.Generate(context.Background(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}

	if !raw {
		format, err := relay.ParseFormat(cfg.Relay.Format)
		if err != nil {
			return err
		}
		text = relay.Truncate(relay.Render(format, text), cfg.Relay.MaxLength)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

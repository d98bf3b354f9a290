package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/signature"
)

var signSecret string

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Print the webhook signature for a request body",
	Long: `Computes the sha256= HMAC signature the provider would send for the given
body. Reads stdin when no file is given. Useful for replaying webhooks with curl.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVar(&signSecret, "secret", "", "webhook secret (defaults to the configured secret)")
	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, args []string) error {
	secret := signSecret
	if secret == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		secret = cfg.Webhook.Secret
	}
	if secret == "" {
		return fmt.Errorf("no secret: pass --secret or set WEBHOOK_SECRET")
	}

	var (
		body []byte
		err  error
	)
	if len(args) == 1 {
		body, err = os.ReadFile(args[0])
	} else {
		body, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), signature.Sign([]byte(secret), body))
	return nil
}

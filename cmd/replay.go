package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/progress"
	"github.com/ziadkadry99/wa-relay/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay [files, dirs or globs...]",
	Short: "Post captured webhook bodies to a running relay",
	Long: `Signs each JSON body with the configured webhook secret and posts it to the
relay's webhook endpoint, printing the response for each. Directories are
searched for *.json files and arguments may be globs such as "captures/**/*.json".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().String("url", "", "webhook URL (default http://localhost:<port><webhook path>)")
	replayCmd.Flags().Bool("unsigned", false, "omit the signature header")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	unsigned, _ := cmd.Flags().GetBool("unsigned")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Webhook.Secret == "" && !unsigned {
		return fmt.Errorf("no secret: set WEBHOOK_SECRET or pass --unsigned")
	}
	if url == "" {
		url = fmt.Sprintf("http://localhost:%d%s", cfg.Server.Port, cfg.Webhook.Path)
	}

	files, err := replay.Expand(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := replay.New(replay.Config{
		URL:             url,
		Secret:          []byte(cfg.Webhook.Secret),
		SignatureHeader: cfg.Webhook.SignatureHeader,
		Unsigned:        unsigned,
	})
	results := r.Run(ctx, files, progress.NewReporter("Replaying webhooks", os.Stderr))

	failed := 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Printf("  ✗ %s: %v\n", res.File, res.Err)
		case !res.OK():
			failed++
			fmt.Printf("  ✗ %s: %d %s\n", res.File, res.StatusCode, res.Status)
		default:
			fmt.Printf("  ✓ %s: %s\n", res.File, res.Status)
		}
	}
	fmt.Printf("\n%d sent, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d webhooks failed", failed, len(results))
	}
	return nil
}

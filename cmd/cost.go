package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/llm"
	"github.com/ziadkadry99/wa-relay/internal/reply"
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Estimate completion costs for a message volume",
	Long:  `Estimates the OpenAI cost of answering customer messages with the configured prompt, without making any calls.`,
	RunE:  runCost,
}

func init() {
	costCmd.Flags().Int("messages-per-day", 200, "inbound text messages per day")
	costCmd.Flags().Int("message-chars", 80, "average customer message length in characters")
	costCmd.Flags().Int("reply-tokens", 120, "average reply length in tokens")
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	perDay, _ := cmd.Flags().GetInt("messages-per-day")
	msgChars, _ := cmd.Flags().GetInt("message-chars")
	replyTokens, _ := cmd.Flags().GetInt("reply-tokens")
	if perDay < 0 || msgChars < 0 || replyTokens < 0 {
		return fmt.Errorf("flags must be non-negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	system, err := reply.SystemPrompt(cfg.Reply.BusinessName, cfg.Reply.Persona)
	if err != nil {
		return err
	}
	if limit := cfg.Completion.MaxOutputTokens; limit > 0 && replyTokens > limit {
		replyTokens = limit
	}
	inputTokens := llm.EstimateTokens(system) + llm.EstimateTokens(strings.Repeat("x", msgChars))

	fmt.Println("Cost Estimate")
	fmt.Println("=============")
	fmt.Printf("  Messages per day:    %d\n", perDay)
	fmt.Printf("  Input tokens/reply:  ~%d (system prompt + message)\n", inputTokens)
	fmt.Printf("  Output tokens/reply: ~%d\n", replyTokens)
	fmt.Println()

	fmt.Println("  Model Comparison:")
	fmt.Println("  ────────────────────────────────────────────────")
	fmt.Printf("    %-14s %12s %10s %10s\n", "model", "per reply", "per day", "per 30d")
	for _, model := range llm.PricedModels() {
		each := llm.EstimateCost(model, inputTokens, replyTokens)
		marker := " "
		if model == cfg.Completion.Model {
			marker = "*"
		}
		fmt.Printf("  %s %-14s $%11.6f $%9.4f $%9.2f\n", marker, model, each, each*float64(perDay), each*float64(perDay)*30)
	}
	fmt.Println()
	fmt.Println("  * = current configuration")
	if llm.EstimateCost(cfg.Completion.Model, 1, 1) == 0 {
		fmt.Printf("  No pricing known for %s.\n", cfg.Completion.Model)
	}
	return nil
}

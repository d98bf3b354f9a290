package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path, and returns it. Secrets are not asked for; the wizard lists the
// environment variables to set instead.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to warelay! Let's configure your WhatsApp relay.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Business name used in the persona prompt.
	namePrompt := promptui.Prompt{
		Label:   "Business name",
		Default: cfg.Reply.BusinessName,
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("business name: %w", err)
	}
	cfg.Reply.BusinessName = strings.TrimSpace(name)

	// 2. Completion transport.
	apiPrompt := promptui.Select{
		Label: "Completion API",
		Items: []string{
			"responses - OpenAI Responses API",
			"chat      - Chat Completions (OpenAI or compatible)",
		},
	}
	apiIdx, _, err := apiPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("completion api: %w", err)
	}
	cfg.Completion.API = []string{"responses", "chat"}[apiIdx]

	// 3. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Completion.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Completion.Model = strings.TrimSpace(model)

	// 4. Reply formatting.
	formatPrompt := promptui.Select{
		Label: "Reply formatting",
		Items: []string{
			"whatsapp - convert Markdown to WhatsApp *bold* / _italic_",
			"plain    - strip Markdown",
			"raw      - send model output unchanged",
		},
	}
	formatIdx, _, err := formatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("reply format: %w", err)
	}
	cfg.Relay.Format = []string{"whatsapp", "plain", "raw"}[formatIdx]

	// 5. Courtesy reply for images, voice notes and documents.
	nonTextPrompt := promptui.Prompt{
		Label:   "Reply to non-text messages (blank to stay silent)",
		Default: "",
	}
	nonText, err := nonTextPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("non-text reply: %w", err)
	}
	cfg.Relay.NonTextReply = strings.TrimSpace(nonText)

	// 6. Port.
	portPrompt := promptui.Prompt{
		Label:    "Listen port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)

	if missing := MissingSecretEnv(); len(missing) > 0 {
		fmt.Printf("\nNote: set %s in your environment (or .env) before running warelay serve.\n",
			strings.Join(missing, ", "))
	}
	return cfg, nil
}

// MissingSecretEnv lists the secret environment variables that are unset.
func MissingSecretEnv() []string {
	var missing []string
	for _, name := range []string{EnvSecret, EnvOpenAIKey, EnvInteraktKey} {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

package reply

import (
	"strings"
	"text/template"
)

var systemTemplate = template.Must(template.New("system").Parse(
	`You are a customer support agent for {{.BusinessName}}, answering customers on WhatsApp.
Reply briefly and politely: a few short sentences, no long lists.
Answer in the language the customer used. Customers write in English, Tamil, or Tamil typed in English letters; match what they send.
Only state facts about {{.BusinessName}} that you are certain of. Never invent prices, stock levels, delivery dates, offers or policies. If you do not know, say a team member will follow up.
{{- with .Persona}}

{{.}}
{{- end}}`))

type promptData struct {
	BusinessName string
	Persona      string
}

// SystemPrompt renders the instruction sent with every customer message.
func SystemPrompt(businessName, persona string) (string, error) {
	if strings.TrimSpace(businessName) == "" {
		businessName = "our business"
	}
	var sb strings.Builder
	err := systemTemplate.Execute(&sb, promptData{
		BusinessName: strings.TrimSpace(businessName),
		Persona:      strings.TrimSpace(persona),
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

package llm

import (
	"sort"
	"unicode/utf8"
)

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var priceTable = map[string]modelPricing{
	"gpt-4.1":      {InputPerMillion: 2.00, OutputPerMillion: 8.00},
	"gpt-4.1-mini": {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"gpt-4.1-nano": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gpt-4o":       {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":  {InputPerMillion: 0.15, OutputPerMillion: 0.60},
}

// EstimateCost returns the estimated cost in USD for the given model and token
// counts, or 0 for an unknown model. Dated snapshots such as
// "gpt-4.1-mini-2025-04-14" are priced as their base model.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := lookupPricing(model)
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

// PricedModels returns the models EstimateCost knows, sorted by name.
func PricedModels() []string {
	models := make([]string, 0, len(priceTable))
	for m := range priceTable {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

func lookupPricing(model string) (modelPricing, bool) {
	if p, ok := priceTable[model]; ok {
		return p, true
	}
	// Snapshot suffix is "-YYYY-MM-DD".
	if len(model) > 11 && model[len(model)-11] == '-' {
		p, ok := priceTable[model[:len(model)-11]]
		return p, ok
	}
	return modelPricing{}, false
}

// EstimateTokens approximates a token count as one token per four characters.
// Characters, not bytes, are counted so Tamil text is not over-estimated.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	if n < 4 {
		return 1
	}
	return n / 4
}

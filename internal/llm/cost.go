package llm

// modelPrice holds USD prices per one million tokens.
type modelPrice struct {
	in  float64
	out float64
}

var modelPrices = map[string]modelPrice{
	"gpt-3.5-turbo":     {in: 0.50, out: 1.50},
	"gpt-3.5-turbo-16k": {in: 3.00, out: 4.00},
	"gpt-4":             {in: 30.00, out: 60.00},
	"gpt-4-32k":         {in: 60.00, out: 120.00},
	"gpt-4-turbo":       {in: 10.00, out: 30.00},
	"gpt-4o":            {in: 2.50, out: 10.00},
	"gpt-4o-mini":       {in: 0.15, out: 0.60},
}

// PromptCost returns the USD cost of one completion call. Unknown models
// cost zero; accounting is best-effort reporting, never a gate.
func PromptCost(model string, promptTokens, completionTokens int) float64 {
	price, ok := modelPrices[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1e6*price.in + float64(completionTokens)/1e6*price.out
}

package llm

// messageOverheadTokens is the fixed protocol framing cost charged once
// per message in the context window.
const messageOverheadTokens = 15

// defaultContextLimit is used for models not in the limit table.
const defaultContextLimit = 128000

// contextLimits maps model names to their maximum context size in tokens.
var contextLimits = map[string]int{
	"gpt-3.5-turbo":     4096,
	"gpt-3.5-turbo-16k": 16384,
	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
}

// ContextLimit returns the context budget for a model.
func ContextLimit(model string) int {
	if limit, ok := contextLimits[model]; ok {
		return limit
	}
	return defaultContextLimit
}

// EstimateTokens estimates token count using the ~4 chars/token heuristic.
// Good enough for threshold comparison. Not billing-accurate.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// CountMessageTokens estimates the total tokens of a message window,
// including the per-message framing overhead.
func CountMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + messageOverheadTokens
	}
	return total
}

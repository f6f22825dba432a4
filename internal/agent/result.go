package agent

import (
	"fmt"

	"github.com/duetdev/duet/internal/chat"
	"github.com/duetdev/duet/internal/llm"
)

// Info is the per-turn info record. ID and Usage are absent when the
// turn terminated before reaching the gateway.
type Info struct {
	ID                 string
	Usage              *llm.Usage
	TerminationReasons []string
	NumTokens          int
}

// TurnResult is the outcome of one Turn Executor invocation. When
// Terminated is true the reply sequence is empty.
type TurnResult struct {
	Msgs       []chat.Message
	Terminated bool
	Info       Info
}

// Msg returns the single reply. Calling it when the turn terminated, or
// when the reply count is not exactly one, is a contract violation and
// fails with an error rather than coercing.
func (r *TurnResult) Msg() (chat.Message, error) {
	if r.Terminated {
		return chat.Message{}, fmt.Errorf("turn terminated: %v", r.Info.TerminationReasons)
	}
	if len(r.Msgs) > 1 {
		return chat.Message{}, fmt.Errorf("expected a single reply, got %d", len(r.Msgs))
	}
	if len(r.Msgs) == 0 {
		return chat.Message{}, fmt.Errorf("no reply in turn result (id=%q)", r.Info.ID)
	}
	return r.Msgs[0], nil
}

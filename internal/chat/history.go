package chat

// History is the ordered, append-only message sequence owned by one agent.
// Index 0 is always the system message; windowing never evicts it.
type History struct {
	msgs []Message
}

// NewHistory creates a history seeded with the system message.
func NewHistory(system Message) *History {
	return &History{msgs: []Message{system}}
}

// Append adds a message and returns the full history.
func (h *History) Append(m Message) []Message {
	h.msgs = append(h.msgs, m)
	return h.msgs
}

// Messages returns the stored messages. Callers must not mutate the slice.
func (h *History) Messages() []Message {
	return h.msgs
}

// Len returns the number of stored messages, including the system message.
func (h *History) Len() int {
	return len(h.msgs)
}

// System returns the system message.
func (h *History) System() Message {
	return h.msgs[0]
}

// Reset truncates the history back to the system message alone.
func (h *History) Reset() []Message {
	h.msgs = h.msgs[:1]
	return h.msgs
}

// Window returns the effective context for a model call. With a window
// size w > 0 and more than w stored messages, the context is the system
// message followed by the last w messages; otherwise the full history.
func (h *History) Window(w int) []Message {
	if w <= 0 || len(h.msgs) <= w {
		return h.msgs
	}
	out := make([]Message, 0, w+1)
	out = append(out, h.msgs[0])
	out = append(out, h.msgs[len(h.msgs)-w:]...)
	return out
}

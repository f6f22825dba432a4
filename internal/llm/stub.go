package llm

import (
	"context"
	"fmt"
	"sync"
)

// StubProvider is a scripted in-process provider for tests and offline
// runs. It mimics the wire shape of a real completion endpoint.
type StubProvider struct {
	mu            sync.Mutex
	responses     []string
	defaultReply  string
	failuresLeft  int
	failErr       error
	calls         int
	embedCalls    int
	lastMessages  []Message
	embedding     []float32
	embedErr      error
	multiChoice   int
}

// NewStubProvider creates a stub that replies with a fixed placeholder.
func NewStubProvider() *StubProvider {
	return &StubProvider{
		defaultReply: "Lorem Ipsum",
		embedding:    make([]float32, 8),
	}
}

// SetResponse sets the reply returned by every completion call.
func (s *StubProvider) SetResponse(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultReply = content
}

// QueueResponses sets an ordered script of replies; once exhausted the
// default reply is used.
func (s *StubProvider) QueueResponses(contents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, contents...)
}

// FailTimes makes the next n completion calls fail with err.
func (s *StubProvider) FailTimes(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failuresLeft = n
	s.failErr = err
}

// SetMultiChoice makes completions return n identical choices.
func (s *StubProvider) SetMultiChoice(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiChoice = n
}

// SetEmbedding sets the vector returned by Embed.
func (s *StubProvider) SetEmbedding(vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedding = vec
}

// SetEmbedError makes Embed fail with err.
func (s *StubProvider) SetEmbedError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedErr = err
}

// Calls returns the number of completion invocations.
func (s *StubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// EmbedCalls returns the number of embedding invocations.
func (s *StubProvider) EmbedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedCalls
}

// LastMessages returns the message window of the most recent completion.
func (s *StubProvider) LastMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessages
}

// Complete implements Provider.
func (s *StubProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.lastMessages = append([]Message(nil), messages...)

	if s.failuresLeft > 0 {
		s.failuresLeft--
		return nil, s.failErr
	}

	content := s.defaultReply
	if len(s.responses) > 0 {
		content = s.responses[0]
		s.responses = s.responses[1:]
	}

	n := s.multiChoice
	if n <= 0 {
		n = 1
	}
	choices := make([]Choice, 0, n)
	for i := 0; i < n; i++ {
		choices = append(choices, Choice{
			Message:      Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		})
	}

	return &Completion{
		ID:    fmt.Sprintf("stub-%d", s.calls),
		Model: opts.Model,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
		Choices: choices,
	}, nil
}

// Embed implements Provider.
func (s *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedCalls++
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.embedding, nil
}

package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/duetdev/duet/internal/chat"
	"github.com/duetdev/duet/internal/llm"
	"github.com/duetdev/duet/internal/logging"
	"github.com/duetdev/duet/internal/memory"
)

func quietLogger() *logging.Logger {
	l := logging.New()
	l.SetOutput(io.Discard)
	return l
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		InitBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func newTestAgent(stub *llm.StubProvider, opts ...func(*Config)) *ChatAgent {
	cfg := Config{
		SystemMessage: chat.NewSystemMessage("Coder", chat.RoleTypeAssistant, "You are a coder."),
		Provider:      stub,
		Model:         "stub-model",
		Retry:         fastRetry(3),
		Logger:        quietLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

func TestStepReturnsReplyWithoutAppending(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetResponse("here is the code")
	a := newTestAgent(stub)

	result, err := a.Step(context.Background(), chat.NewUserMessage("CTO", "write code"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	msg, err := result.Msg()
	if err != nil {
		t.Fatalf("Msg: %v", err)
	}
	if msg.Content != "here is the code" {
		t.Errorf("reply = %q", msg.Content)
	}
	if msg.RoleName != "Coder" || msg.RoleType != chat.RoleTypeAssistant {
		t.Errorf("reply identity = %s/%s, want the agent's own", msg.RoleName, msg.RoleType)
	}

	// The inbound message is recorded; the reply is not.
	hist := a.History()
	if len(hist) != 2 {
		t.Fatalf("history = %d messages, want system + inbound", len(hist))
	}
	if hist[1].Content != "write code" {
		t.Errorf("history[1] = %q", hist[1].Content)
	}
}

func TestStepTerminatesOnTokenBudgetWithoutGatewayCall(t *testing.T) {
	stub := llm.NewStubProvider()
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.TokenLimit = 20
	})

	result, err := a.Step(context.Background(), chat.NewUserMessage("CTO", strings.Repeat("x", 400)))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if !result.Terminated {
		t.Fatal("expected termination")
	}
	if len(result.Msgs) != 0 {
		t.Errorf("terminated turn carries %d replies", len(result.Msgs))
	}
	if len(result.Info.TerminationReasons) != 1 || result.Info.TerminationReasons[0] != "max_tokens_exceeded" {
		t.Errorf("reasons = %v", result.Info.TerminationReasons)
	}
	if result.Info.NumTokens < 20 {
		t.Errorf("num tokens = %d, want at least the limit", result.Info.NumTokens)
	}
	if stub.Calls() != 0 {
		t.Errorf("gateway was called %d times, want 0", stub.Calls())
	}
	if !a.Terminated() {
		t.Error("agent did not enter the terminated state")
	}
}

func TestStepRetriesThenSucceeds(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.FailTimes(2, errors.New("rate limited"))
	a := newTestAgent(stub)

	result, err := a.Step(context.Background(), chat.NewUserMessage("CTO", "go"))
	if err != nil {
		t.Fatalf("Step after retries: %v", err)
	}
	if result.Terminated {
		t.Error("successful retry should not terminate")
	}
	if stub.Calls() != 3 {
		t.Errorf("gateway calls = %d, want 3 (2 failures + 1 success)", stub.Calls())
	}
}

func TestStepRetryExhaustionPropagates(t *testing.T) {
	stub := llm.NewStubProvider()
	cause := errors.New("backend down")
	stub.FailTimes(10, cause)
	a := newTestAgent(stub)

	_, err := a.Step(context.Background(), chat.NewUserMessage("CTO", "go"))
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap the final failure", err)
	}
	if stub.Calls() != 3 {
		t.Errorf("gateway calls = %d, want exactly MaxAttempts", stub.Calls())
	}
	if !a.Terminated() {
		t.Error("agent should be terminated after retry exhaustion")
	}
}

func TestStepRespectsContextCancellation(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.FailTimes(10, errors.New("slow failure"))
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.Retry = RetryConfig{MaxAttempts: 5, InitBackoff: time.Hour, MaxBackoff: time.Hour}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Step(ctx, chat.NewUserMessage("CTO", "go"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestInfoSentinelDetection(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetResponse("all done\n<INFO> the answer is 42")
	a := newTestAgent(stub)

	if _, err := a.Step(context.Background(), chat.NewUserMessage("CTO", "go")); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !a.InfoSignal() {
		t.Error("info sentinel on the last line was not detected")
	}
}

func TestInfoSentinelMidMessageIgnored(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetResponse("<INFO> looks done\nbut we continue")
	a := newTestAgent(stub)

	if _, err := a.Step(context.Background(), chat.NewUserMessage("CTO", "go")); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if a.InfoSignal() {
		t.Error("sentinel not on the last line must not signal")
	}
}

func TestResetClearsFlagsAndHistory(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetResponse("<INFO> done")
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.TokenLimit = 1000
	})

	a.Step(context.Background(), chat.NewUserMessage("CTO", "go"))
	if !a.InfoSignal() {
		t.Fatal("precondition: info signal set")
	}

	got := a.Reset()

	if a.InfoSignal() || a.Terminated() {
		t.Error("reset did not clear flags")
	}
	if len(got) != 1 || got[0].Role != chat.RoleSystem {
		t.Errorf("history after reset = %v", got)
	}
}

func TestMsgFailsOnMultipleChoices(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetMultiChoice(2)
	a := newTestAgent(stub)

	result, err := a.Step(context.Background(), chat.NewUserMessage("CTO", "go"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if _, err := result.Msg(); err == nil {
		t.Error("Msg must fail on multiple choices")
	}
}

func TestMsgFailsOnTerminatedResult(t *testing.T) {
	result := &TurnResult{Terminated: true, Info: Info{TerminationReasons: []string{"max_tokens_exceeded"}}}
	if _, err := result.Msg(); err == nil {
		t.Error("Msg must fail on a terminated result")
	}
}

func TestWindowedStepKeepsSystemMessage(t *testing.T) {
	stub := llm.NewStubProvider()
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.WindowSize = 2
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := a.Step(ctx, chat.NewUserMessage("CTO", "instruction"))
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		msg, _ := result.Msg()
		a.AppendMessage(msg)
	}

	sent := stub.LastMessages()
	if len(sent) != 3 {
		t.Fatalf("window sent %d messages, want system + 2", len(sent))
	}
	if sent[0].Role != "system" {
		t.Errorf("first wire message role = %q, want system", sent[0].Role)
	}
}

func TestRetrieveMemoryNilStore(t *testing.T) {
	a := newTestAgent(llm.NewStubProvider())
	if _, ok := a.RetrieveMemory(context.Background(), "query"); ok {
		t.Error("nil store must report no memory")
	}
}

func TestRetrieveMemoryFormatsHits(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetEmbedding([]float32{1, 0})
	store := memory.NewInMemoryStore()
	store.Add(context.Background(), []memory.Item{
		{Content: "calculator uses postfix parsing", Vector: []float32{1, 0}},
	})
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.Memory = store
	})

	block, ok := a.RetrieveMemory(context.Background(), "calculator")
	if !ok {
		t.Fatal("expected a memory hit")
	}
	if !strings.Contains(block, "Relevant past memories:") {
		t.Errorf("block missing header: %q", block)
	}
	if !strings.Contains(block, "- calculator uses postfix parsing") {
		t.Errorf("block missing bullet: %q", block)
	}
}

func TestRetrieveMemoryZeroHits(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetEmbedding([]float32{1, 0})
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.Memory = memory.NewInMemoryStore()
	})

	if _, ok := a.RetrieveMemory(context.Background(), "query"); ok {
		t.Error("empty store must report no memory")
	}
}

func TestRetrieveMemoryEmbedFailureRecovered(t *testing.T) {
	stub := llm.NewStubProvider()
	stub.SetEmbedError(errors.New("embeddings down"))
	a := newTestAgent(stub, func(cfg *Config) {
		cfg.Memory = memory.NewInMemoryStore()
	})

	if _, ok := a.RetrieveMemory(context.Background(), "query"); ok {
		t.Error("embed failure must degrade to no memory")
	}
}

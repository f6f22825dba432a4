package roleplay

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/duetdev/duet/internal/chat"
)

var tracer = otel.Tracer("duet/roleplay")

// StepTraced wraps Step in a span carrying the exchange outcome.
func (r *RolePlaying) StepTraced(ctx context.Context, userMsg chat.Message, assistantOnly bool) (*ExchangeResult, error) {
	ctx, span := tracer.Start(ctx, "roleplay.step", trace.WithAttributes(
		attribute.String("roleplay.assistant", r.assistantRoleName),
		attribute.String("roleplay.user", r.userRoleName),
		attribute.Bool("roleplay.assistant_only", assistantOnly),
	))
	defer span.End()

	result, err := r.Step(ctx, userMsg, assistantOnly)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("roleplay.assistant_terminated", result.Assistant.Terminated),
		attribute.Bool("roleplay.done", r.Done()),
	)
	return result, nil
}

// InitChatTraced wraps InitChat in a span.
func (r *RolePlaying) InitChatTraced(ctx context.Context, phase string, placeholders map[string]string) (chat.Message, error) {
	ctx, span := tracer.Start(ctx, "roleplay.init_chat", trace.WithAttributes(
		attribute.String("roleplay.phase", phase),
	))
	defer span.End()

	msg, err := r.InitChat(ctx, phase, placeholders)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return msg, err
}

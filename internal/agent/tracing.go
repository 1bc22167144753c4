package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentflow/internal/agent"

// startInvokeSpan starts a span covering one role invocation.
func (s *Supervisor) startInvokeSpan(ctx context.Context, req Request) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "agent.invoke")
	span.SetAttributes(
		attribute.String("agent.role", string(req.Role)),
		attribute.String("agent.backend", s.settings.Backend),
		attribute.String("agent.workdir", req.WorkDir),
	)
	return ctx, span
}

// endInvokeSpan ends the invocation span with result info.
func (s *Supervisor) endInvokeSpan(span trace.Span, res Result, err error) {
	span.SetAttributes(
		attribute.Int("agent.exit_code", res.ExitCode),
		attribute.Int64("agent.duration_ms", res.Duration.Milliseconds()),
		attribute.Bool("agent.warning", res.Warning != ""),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

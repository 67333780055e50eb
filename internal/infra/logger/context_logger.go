package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// Request-scoped keys propagated through the pipeline for log
	// correlation.
	RequestIDKey      ContextKey = "answerhub.request.id"
	ConversationIDKey ContextKey = "answerhub.conversation.id"
	StageKey          ContextKey = "answerhub.stage"
	StrategyKey       ContextKey = "answerhub.strategy"
)

// FromContext returns base with whatever correlation fields the context
// carries appended as structured attributes.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	var fields []any
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, "request_id", requestID)
	}
	if conversationID := ctx.Value(ConversationIDKey); conversationID != nil {
		fields = append(fields, "conversation_id", conversationID)
	}
	if stage := ctx.Value(StageKey); stage != nil {
		fields = append(fields, "stage", stage)
	}
	if strategy := ctx.Value(StrategyKey); strategy != nil {
		fields = append(fields, "strategy", strategy)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// WithRequestID adds the request ID to the context for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithConversationID adds the conversation ID to the context.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, conversationID)
}

// WithStage tags the context with the current pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithStrategy tags the context with the selected retrieval strategy.
func WithStrategy(ctx context.Context, strategy string) context.Context {
	return context.WithValue(ctx, StrategyKey, strategy)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

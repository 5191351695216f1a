// Package notify defines the notification sink the engine dispatches into.
// Delivery (email, push, persistence) lives elsewhere; the engine only sees
// this interface and treats every call as fire-and-forget.
package notify

import (
	"context"
	"log/slog"
)

const (
	KindAttemptGraded     = "attempt_graded"
	KindRemedialAssigned  = "remedial_assigned"
	KindRemedialCompleted = "remedial_completed"
)

type Sink interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]any) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, userID, kind string, payload map[string]any) error

func (f Func) Notify(ctx context.Context, userID, kind string, payload map[string]any) error {
	return f(ctx, userID, kind, payload)
}

// LogSink writes notifications to the structured log. Default for offline
// runs, where no delivery backend is wired.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(_ context.Context, userID, kind string, payload map[string]any) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notify", "user_id", userID, "kind", kind, "payload", payload)
	return nil
}

// Discard drops everything.
type Discard struct{}

func (Discard) Notify(context.Context, string, string, map[string]any) error { return nil }

// Dispatch sends one notification and swallows the sink error so a bad
// notification can never fail the transaction that triggered it.
func Dispatch(ctx context.Context, sink Sink, logger *slog.Logger, userID, kind string, payload map[string]any) {
	if sink == nil {
		return
	}
	if err := sink.Notify(ctx, userID, kind, payload); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("notification dropped", "user_id", userID, "kind", kind, "err", err)
	}
}

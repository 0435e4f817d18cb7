package observability

import (
	"context"
	"log/slog"
)

// Audit emits a structured audit event. The durable audit trail lives in
// the audit repository; this is the log-side mirror of it.
func Audit(ctx context.Context, action string, attrs ...any) {
	base := []any{"event", action}
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}

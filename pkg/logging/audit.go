package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant session event.
// Values of tokens or assertions must never be placed in an AuditEvent.
type AuditEvent struct {
	// Event is a short machine-readable name, e.g. "token_stored".
	Event string
	// Subsystem is the component emitting the event.
	Subsystem string
	// Outcome is "success" or "failure".
	Outcome string
	// Attrs carries extra non-secret context (keys, backends, counts).
	Attrs []slog.Attr
}

// Audit logs a SECURITY_AUDIT line at INFO level (WARN on failure).
func Audit(ev AuditEvent) {
	l := logger()
	if l == nil {
		l = slog.Default()
	}

	level := slog.LevelInfo
	if ev.Outcome == "failure" {
		level = slog.LevelWarn
	}

	attrs := make([]slog.Attr, 0, len(ev.Attrs)+3)
	attrs = append(attrs,
		slog.String("event", ev.Event),
		slog.String("subsystem", ev.Subsystem),
	)
	if ev.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", ev.Outcome))
	}
	attrs = append(attrs, ev.Attrs...)

	l.LogAttrs(context.Background(), level, "SECURITY_AUDIT: "+ev.Event, attrs...)
}

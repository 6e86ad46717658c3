// Package logging provides subsystem-tagged structured logging for goose,
// built on the standard slog package.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Session", "Restored session for %s", user.Email)
//	logging.Debug("Gateway", "Calling %s", procedure)
//	logging.Warn("Store", "Session file unreadable, treating as empty")
//	logging.Error("Session", err, "Backend logout failed")
//
// Every entry carries a "subsystem" attribute, plus "error" when one is
// passed to Error.
//
// # Audit Logging
//
// Token lifecycle events are logged with a SECURITY_AUDIT prefix:
//
//	logging.Audit(logging.AuditEvent{
//	    Event:     "token_stored",
//	    Subsystem: "Store",
//	    Outcome:   "success",
//	    Attrs:     []slog.Attr{slog.String("backend", "file")},
//	})
//
// Audit events never contain token or assertion values.
package logging

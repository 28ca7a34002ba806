package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDomain     = "domain"
	KeyPhase      = "phase"
	KeyRunID      = "run_id"
	KeyKey        = "key"
	KeyTarget     = "target"
	KeyState      = "state"
	KeyProgress   = "progress"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Domain(d string) slog.Attr       { return slog.String(KeyDomain, d) }
func Phase(p string) slog.Attr        { return slog.String(KeyPhase, p) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Progress(p float64) slog.Attr    { return slog.Float64(KeyProgress, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

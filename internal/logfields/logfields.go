package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDocument       = "document"
	KeySection        = "section"
	KeySnapshotID     = "snapshot_id"
	KeyClassification = "classification"
	KeyHeadings       = "headings"
	KeyChanges        = "changes"
	KeyDurationMS     = "duration_ms"
	KeyScheduleID     = "schedule_id"
	KeySchedule       = "schedule_name"
	KeyError          = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Document(path string) slog.Attr    { return slog.String(KeyDocument, path) }
func Section(path string) slog.Attr     { return slog.String(KeySection, path) }
func SnapshotID(id string) slog.Attr    { return slog.String(KeySnapshotID, id) }
func Classification(c string) slog.Attr { return slog.String(KeyClassification, c) }
func Headings(n int) slog.Attr          { return slog.Int(KeyHeadings, n) }
func Changes(n int) slog.Attr           { return slog.Int(KeyChanges, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func ScheduleID(id string) slog.Attr    { return slog.String(KeyScheduleID, id) }
func ScheduleName(n string) slog.Attr   { return slog.String(KeySchedule, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

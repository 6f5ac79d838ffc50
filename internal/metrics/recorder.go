package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultError   ResultLabel = "error"
)

// Recorder defines observability hooks for document processing metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveExtractDuration(d time.Duration)
	ObserveDeltaDuration(d time.Duration)
	IncDocumentResult(result ResultLabel)
	IncDeltaClassification(class string)
	IncSnapshotSaved()
	IncBrokenLinks(n int)
	SetWatchedDocuments(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveExtractDuration(time.Duration) {}
func (NoopRecorder) ObserveDeltaDuration(time.Duration)   {}
func (NoopRecorder) IncDocumentResult(ResultLabel)        {}
func (NoopRecorder) IncDeltaClassification(string)        {}
func (NoopRecorder) IncSnapshotSaved()                    {}
func (NoopRecorder) IncBrokenLinks(int)                   {}
func (NoopRecorder) SetWatchedDocuments(int)              {}

package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	extractDuration  prom.Histogram
	deltaDuration    prom.Histogram
	documentResults  *prom.CounterVec
	deltaClasses     *prom.CounterVec
	snapshotsSaved   prom.Counter
	brokenLinks      prom.Counter
	watchedDocuments prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.extractDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mdstruct",
			Name:      "extract_duration_seconds",
			Help:      "Duration of structure extraction per document",
			Buckets:   prom.DefBuckets,
		})
		pr.deltaDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mdstruct",
			Name:      "delta_duration_seconds",
			Help:      "Duration of structural delta computation",
			Buckets:   prom.DefBuckets,
		})
		pr.documentResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdstruct",
			Name:      "document_results_total",
			Help:      "Processed documents by outcome",
		}, []string{"result"})
		pr.deltaClasses = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdstruct",
			Name:      "delta_classifications_total",
			Help:      "Computed deltas by change classification",
		}, []string{"class"})
		pr.snapshotsSaved = prom.NewCounter(prom.CounterOpts{
			Namespace: "mdstruct",
			Name:      "snapshots_saved_total",
			Help:      "Structure snapshots persisted to the store",
		})
		pr.brokenLinks = prom.NewCounter(prom.CounterOpts{
			Namespace: "mdstruct",
			Name:      "broken_links_total",
			Help:      "Internal links broken by structural changes",
		})
		pr.watchedDocuments = prom.NewGauge(prom.GaugeOpts{
			Namespace: "mdstruct",
			Name:      "watched_documents",
			Help:      "Documents currently tracked by the watcher",
		})
		reg.MustRegister(pr.extractDuration, pr.deltaDuration, pr.documentResults, pr.deltaClasses, pr.snapshotsSaved, pr.brokenLinks, pr.watchedDocuments)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveExtractDuration(d time.Duration) {
	if p == nil || p.extractDuration == nil {
		return
	}
	p.extractDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveDeltaDuration(d time.Duration) {
	if p == nil || p.deltaDuration == nil {
		return
	}
	p.deltaDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocumentResult(result ResultLabel) {
	if p == nil || p.documentResults == nil {
		return
	}
	p.documentResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncDeltaClassification(class string) {
	if p == nil || p.deltaClasses == nil {
		return
	}
	p.deltaClasses.WithLabelValues(class).Inc()
}

func (p *PrometheusRecorder) IncSnapshotSaved() {
	if p == nil || p.snapshotsSaved == nil {
		return
	}
	p.snapshotsSaved.Inc()
}

func (p *PrometheusRecorder) IncBrokenLinks(n int) {
	if p == nil || p.brokenLinks == nil || n <= 0 {
		return
	}
	p.brokenLinks.Add(float64(n))
}

func (p *PrometheusRecorder) SetWatchedDocuments(n int) {
	if p == nil || p.watchedDocuments == nil {
		return
	}
	p.watchedDocuments.Set(float64(n))
}

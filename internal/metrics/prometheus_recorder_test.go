package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveExtractDuration(50 * time.Millisecond)
	rec.ObserveDeltaDuration(10 * time.Millisecond)
	rec.IncDocumentResult(ResultSuccess)
	rec.IncDocumentResult(ResultSuccess)
	rec.IncDocumentResult(ResultError)
	rec.IncDeltaClassification("structural_only")
	rec.IncSnapshotSaved()
	rec.IncBrokenLinks(2)
	rec.SetWatchedDocuments(4)

	fams, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, fam := range fams {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				byName[fam.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				byName[fam.GetName()] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, float64(3), byName["mdstruct_document_results_total"])
	assert.Equal(t, float64(1), byName["mdstruct_delta_classifications_total"])
	assert.Equal(t, float64(1), byName["mdstruct_snapshots_saved_total"])
	assert.Equal(t, float64(2), byName["mdstruct_broken_links_total"])
	assert.Equal(t, float64(4), byName["mdstruct_watched_documents"])
}

func TestPrometheusRecorderNegativeBrokenLinksIgnored(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.IncBrokenLinks(-1)
	rec.IncBrokenLinks(0)

	fams, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range fams {
		if fam.GetName() == "mdstruct_broken_links_total" {
			assert.Equal(t, float64(0), fam.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

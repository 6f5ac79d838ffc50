// Package track ties the pipeline together: parse a document, snapshot its
// structure, compare against the previous stored snapshot, persist the
// result, and fan out notifications.
package track

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/mdstruct/internal/delta"
	"git.home.luguber.info/inful/mdstruct/internal/docmodel"
	"git.home.luguber.info/inful/mdstruct/internal/logfields"
	"git.home.luguber.info/inful/mdstruct/internal/metrics"
	"git.home.luguber.info/inful/mdstruct/internal/snapshot"
)

// Publisher is the notification sink for computed deltas. Implemented by
// notify.Publisher; nil disables publishing.
type Publisher interface {
	PublishDelta(ctx context.Context, document, snapshotID string, d *delta.Delta) error
}

// Tracker processes document changes against a snapshot store.
type Tracker struct {
	store     snapshot.Store
	publisher Publisher
	recorder  metrics.Recorder
	keep      int
}

// Result summarizes one processed document change.
type Result struct {
	Document   string
	SnapshotID string
	First      bool // no previous snapshot existed
	Delta      *delta.Delta
}

// New creates a Tracker. The store is required; publisher may be nil. Keep
// bounds snapshots retained per document, zero disables pruning.
func New(store snapshot.Store, publisher Publisher, recorder metrics.Recorder, keep int) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Tracker{store: store, publisher: publisher, recorder: recorder, keep: keep}, nil
}

// Process snapshots the document content, compares it with the most recent
// stored snapshot, and persists both the snapshot and the delta.
func (t *Tracker) Process(ctx context.Context, document string, content []byte) (*Result, error) {
	start := time.Now()

	doc, err := docmodel.Parse(content, docmodel.Options{})
	if err != nil {
		t.recorder.IncDocumentResult(metrics.ResultError)
		return nil, fmt.Errorf("parse %s: %w", document, err)
	}

	current, err := doc.Snapshot()
	if err != nil {
		t.recorder.IncDocumentResult(metrics.ResultError)
		return nil, fmt.Errorf("snapshot %s: %w", document, err)
	}
	t.recorder.ObserveExtractDuration(time.Since(start))

	previous, err := t.store.Latest(ctx, document)
	if err != nil {
		t.recorder.IncDocumentResult(metrics.ResultError)
		return nil, fmt.Errorf("load latest snapshot for %s: %w", document, err)
	}

	id, err := t.store.Save(ctx, document, current, nil)
	if err != nil {
		t.recorder.IncDocumentResult(metrics.ResultError)
		return nil, fmt.Errorf("save snapshot for %s: %w", document, err)
	}
	t.recorder.IncSnapshotSaved()

	result := &Result{Document: document, SnapshotID: id, First: previous == nil}
	if previous == nil {
		slog.Info("First snapshot taken",
			logfields.Document(document),
			logfields.SnapshotID(id),
			logfields.Headings(current.HeadingCount()))
		t.recorder.IncDocumentResult(metrics.ResultSuccess)
		return result, nil
	}

	deltaStart := time.Now()
	// Stored snapshots carry hashes only, so frontmatter diffs are
	// hash-level here; key-level diffs need both raw documents.
	d := delta.Compute(previous.Toc, current, nil, nil)
	t.recorder.ObserveDeltaDuration(time.Since(deltaStart))
	t.recorder.IncDeltaClassification(string(d.Classification))
	t.recorder.IncBrokenLinks(len(d.BrokenLinks))
	result.Delta = d

	if d.HasChanges() {
		if _, err := t.store.SaveDelta(ctx, document, previous.ID, id, d); err != nil {
			t.recorder.IncDocumentResult(metrics.ResultError)
			return nil, fmt.Errorf("save delta for %s: %w", document, err)
		}
	}

	if t.keep > 0 {
		if _, err := t.store.Prune(ctx, document, t.keep); err != nil {
			slog.Warn("Snapshot prune failed", logfields.Document(document), logfields.Error(err))
		}
	}

	if t.publisher != nil && d.HasChanges() {
		if err := t.publisher.PublishDelta(ctx, document, id, d); err != nil {
			slog.Warn("Publish failed", logfields.Document(document), logfields.Error(err))
		}
	}

	slog.Info("Document processed",
		logfields.Document(document),
		logfields.Classification(string(d.Classification)),
		logfields.Changes(d.Statistics.Added+d.Statistics.Removed+d.Statistics.Modified+d.Statistics.Moved),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	t.recorder.IncDocumentResult(metrics.ResultSuccess)
	return result, nil
}

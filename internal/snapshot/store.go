package snapshot

import (
	"context"
	"time"

	"git.home.luguber.info/inful/mdstruct/internal/delta"
	"git.home.luguber.info/inful/mdstruct/internal/toc"
)

// Snapshot is a stored document structure record. PageHash is the page
// hash rendered as lowercase hex, kept alongside the payload so cheap
// no-change checks do not need to decode the full structure.
type Snapshot struct {
	ID       string
	Document string
	TakenAt  time.Time
	PageHash string
	Toc      *toc.Toc
	Metadata map[string]string
}

// DeltaRecord is a stored comparison between two snapshots of a document.
type DeltaRecord struct {
	ID         string
	Document   string
	OldID      string
	NewID      string
	ComputedAt time.Time
	Delta      *delta.Delta
}

// Store defines the interface for persisting and retrieving structure snapshots.
type Store interface {
	// Save persists a snapshot of the document's structure and returns its id.
	Save(ctx context.Context, document string, t *toc.Toc, metadata map[string]string) (string, error)

	// Latest retrieves the most recent snapshot for a document.
	Latest(ctx context.Context, document string) (*Snapshot, error)

	// Get retrieves a snapshot by id.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// History retrieves all snapshots for a document, oldest first.
	History(ctx context.Context, document string) ([]Snapshot, error)

	// SaveDelta persists a computed delta between two snapshots.
	SaveDelta(ctx context.Context, document, oldID, newID string, d *delta.Delta) (string, error)

	// Deltas retrieves stored deltas for a document, oldest first.
	Deltas(ctx context.Context, document string) ([]DeltaRecord, error)

	// Prune removes all but the most recent keep snapshots per document.
	Prune(ctx context.Context, document string, keep int) (int, error)

	// Close closes the store and releases resources.
	Close() error
}

package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/mdstruct/internal/delta"
	"git.home.luguber.info/inful/mdstruct/internal/toc"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based snapshot store.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		taken_at INTEGER NOT NULL,
		page_hash TEXT NOT NULL,
		toc BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document, taken_at);

	CREATE TABLE IF NOT EXISTS deltas (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		old_id TEXT NOT NULL,
		new_id TEXT NOT NULL,
		computed_at INTEGER NOT NULL,
		delta BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deltas_document ON deltas(document, computed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists a snapshot of the document's structure and returns its id.
func (s *SQLiteStore) Save(ctx context.Context, document string, t *toc.Toc, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal toc: %w", err)
	}

	var metadataJSON []byte
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snapshots (id, document, taken_at, page_hash, toc, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		id, document, time.Now().Unix(), strconv.FormatUint(t.PageHash, 16), payload, metadataJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	return id, nil
}

// Latest retrieves the most recent snapshot for a document.
func (s *SQLiteStore) Latest(ctx context.Context, document string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, document, taken_at, page_hash, toc, metadata FROM snapshots WHERE document = ? ORDER BY taken_at DESC, rowid DESC LIMIT 1",
		document,
	)
	snap, err := scanSnapshotRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return snap, err
}

// Get retrieves a snapshot by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, document, taken_at, page_hash, toc, metadata FROM snapshots WHERE id = ?",
		id,
	)
	snap, err := scanSnapshotRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return snap, err
}

// History retrieves all snapshots for a document, oldest first.
func (s *SQLiteStore) History(ctx context.Context, document string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document, taken_at, page_hash, toc, metadata FROM snapshots WHERE document = ? ORDER BY taken_at, rowid",
		document,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// SaveDelta persists a computed delta between two snapshots.
func (s *SQLiteStore) SaveDelta(ctx context.Context, document, oldID, newID string, d *delta.Delta) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal delta: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO deltas (id, document, old_id, new_id, computed_at, delta) VALUES (?, ?, ?, ?, ?, ?)",
		id, document, oldID, newID, time.Now().Unix(), payload,
	)
	if err != nil {
		return "", fmt.Errorf("insert delta: %w", err)
	}

	return id, nil
}

// Deltas retrieves stored deltas for a document, oldest first.
func (s *SQLiteStore) Deltas(ctx context.Context, document string) ([]DeltaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document, old_id, new_id, computed_at, delta FROM deltas WHERE document = ? ORDER BY computed_at, rowid",
		document,
	)
	if err != nil {
		return nil, fmt.Errorf("query deltas: %w", err)
	}
	defer rows.Close()

	var out []DeltaRecord
	for rows.Next() {
		var rec DeltaRecord
		var computed int64
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Document, &rec.OldID, &rec.NewID, &computed, &payload); err != nil {
			return nil, fmt.Errorf("scan delta: %w", err)
		}
		rec.ComputedAt = time.Unix(computed, 0)
		rec.Delta = &delta.Delta{}
		if err := json.Unmarshal(payload, rec.Delta); err != nil {
			return nil, fmt.Errorf("unmarshal delta: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Prune removes all but the most recent keep snapshots per document.
func (s *SQLiteStore) Prune(ctx context.Context, document string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE document = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE document = ? ORDER BY taken_at DESC, rowid DESC LIMIT ?
		)`,
		document, document, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshotRow(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var taken int64
	var payload []byte
	var metadataJSON []byte

	err := row.Scan(&snap.ID, &snap.Document, &taken, &snap.PageHash, &payload, &metadataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.TakenAt = time.Unix(taken, 0)
	snap.Toc = &toc.Toc{}
	if err := json.Unmarshal(payload, snap.Toc); err != nil {
		return nil, fmt.Errorf("unmarshal toc: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &snap.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &snap, nil
}

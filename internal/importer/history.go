package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// History statuses.
const (
	StatusImported = "imported"
	StatusFailed   = "failed"
)

// HistoryEntry records the outcome of one candidate in one batch.
type HistoryEntry struct {
	ID        int64
	BatchID   string
	Path      string
	Format    string
	Status    string
	Pixels    int
	Error     string
	Data      string // JSON blob
	CreatedAt time.Time
}

// HistoryFilter specifies criteria for listing history.
type HistoryFilter struct {
	BatchID *string
	Path    *string
	Status  *string
	Limit   int
}

// HistoryStore persists history records.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Add inserts a new history entry.
func (s *HistoryStore) Add(ctx context.Context, h *HistoryEntry) error {
	now := time.Now()
	data := h.Data
	if data == "" {
		data = "{}"
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO history (batch_id, path, format, status, pixels, error, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.BatchID, h.Path, h.Format, h.Status, h.Pixels, h.Error, data, now,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	h.ID = id
	h.Data = data
	h.CreatedAt = now
	return nil
}

// List returns history entries matching the filter.
// Results are ordered by most recent first.
func (s *HistoryStore) List(ctx context.Context, f HistoryFilter) ([]*HistoryEntry, error) {
	var conditions []string
	var args []any

	if f.BatchID != nil {
		conditions = append(conditions, "batch_id = ?")
		args = append(args, *f.BatchID)
	}
	if f.Path != nil {
		conditions = append(conditions, "path = ?")
		args = append(args, *f.Path)
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *f.Status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT id, batch_id, path, format, status, pixels, error, data, created_at
		FROM history ` + whereClause + ` ORDER BY created_at DESC, id DESC`

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*HistoryEntry
	for rows.Next() {
		h := &HistoryEntry{}
		if err := rows.Scan(&h.ID, &h.BatchID, &h.Path, &h.Format, &h.Status, &h.Pixels, &h.Error, &h.Data, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return results, nil
}

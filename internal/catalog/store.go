// Package catalog persists the map catalog rooms are created from.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/gridclash/internal/grid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("map not found")
	ErrDuplicateName = errors.New("a map with this name already exists")
)

// Summary is a catalog listing entry; it omits the tiles.
type Summary struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Size        int       `json:"size"`
	Mode        grid.Mode `json:"mode"`
	IsVisible   bool      `json:"isVisible"`
	UpdatedAt   time.Time `json:"lastModified"`
}

// Store is the catalog the transport and HTTP API read maps from.
type Store interface {
	List(ctx context.Context, visibleOnly bool) ([]Summary, error)
	Get(ctx context.Context, id string) (*grid.Map, error)
	Put(ctx context.Context, m *grid.Map) error
	Delete(ctx context.Context, id string) error
}

const schema = `CREATE TABLE IF NOT EXISTS maps (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE COLLATE NOCASE,
	description TEXT NOT NULL DEFAULT '',
	size        INTEGER NOT NULL,
	mode        TEXT NOT NULL,
	is_visible  INTEGER NOT NULL DEFAULT 0,
	document    TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// SQLiteStore keeps each map as a JSON document next to its listing columns.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens the catalog database at path, creating the schema when missing.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context, visibleOnly bool) ([]Summary, error) {
	q := `SELECT id, name, description, size, mode, is_visible, updated_at FROM maps`
	if visibleOnly {
		q += ` WHERE is_visible = 1`
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.Size, &sum.Mode, &sum.IsVisible, &updated); err != nil {
			return nil, fmt.Errorf("scan map: %w", err)
		}
		sum.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*grid.Map, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM maps WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get map %s: %w", id, err)
	}
	var m grid.Map
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, fmt.Errorf("decode map %s: %w", id, err)
	}
	return &m, nil
}

// Put validates m and inserts or replaces it. Maps without an id get a fresh one.
func (s *SQLiteStore) Put(ctx context.Context, m *grid.Map) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", grid.ErrInvalidMap)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}

	var owner string
	err = s.db.QueryRowContext(ctx, `SELECT id FROM maps WHERE name = ?`, m.Name).Scan(&owner)
	switch {
	case err == nil && owner != m.ID:
		return ErrDuplicateName
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check map name: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO maps (id, name, description, size, mode, is_visible, document, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   size = excluded.size,
		   mode = excluded.mode,
		   is_visible = excluded.is_visible,
		   document = excluded.document,
		   updated_at = excluded.updated_at`,
		m.ID, m.Name, m.Description, m.Size, string(m.Mode), m.IsVisible, string(doc), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put map %s: %w", m.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM maps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete map %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Import stores an exported map document as a new, hidden catalog entry.
// A clashing name gets a numeric suffix.
func Import(ctx context.Context, st Store, raw []byte) (*grid.Map, error) {
	var m grid.Map
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrInvalidMap, err)
	}
	m.ID = ""
	m.IsVisible = false
	base := strings.TrimSpace(m.Name)
	for i := 2; ; i++ {
		err := st.Put(ctx, &m)
		if !errors.Is(err, ErrDuplicateName) {
			if err != nil {
				return nil, err
			}
			return &m, nil
		}
		m.ID = ""
		m.Name = fmt.Sprintf("%s (%d)", base, i)
	}
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"watchface-scraper/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS watchfaces (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL,
	download_url  TEXT NOT NULL DEFAULT '',
	price         TEXT NOT NULL DEFAULT '',
	author        TEXT NOT NULL DEFAULT '',
	rating        REAL,
	downloads     INTEGER NOT NULL DEFAULT 0,
	tags          TEXT NOT NULL DEFAULT '[]',
	compatibility TEXT NOT NULL DEFAULT '[]',
	source_url    TEXT NOT NULL DEFAULT '',
	original_id   TEXT NOT NULL DEFAULT '',
	face_id       TEXT NOT NULL DEFAULT '',
	scraped_at    TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	last_updated  TEXT
);
CREATE INDEX IF NOT EXISTS idx_watchfaces_name_image ON watchfaces(name, image_url);
CREATE INDEX IF NOT EXISTS idx_watchfaces_original_id ON watchfaces(original_id);
`

// sqliteTimeLayout is fixed width so that text order matches time order
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteColumns = `id, name, description, category, image_url, download_url, price, author,
	rating, downloads, tags, compatibility, source_url, original_id, face_id, scraped_at,
	is_active, created_at, updated_at, last_updated`

// SQLiteStore persists records in a local SQLite file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating when needed) the database at path and applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps SQLite from reporting "database is locked"
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// FindExisting looks the record up by dedup key first, then by original id
func (s *SQLiteStore) FindExisting(ctx context.Context, lookup types.Lookup) (*types.StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM watchfaces WHERE name = ? AND image_url = ? ORDER BY created_at LIMIT 1`,
		lookup.Name, lookup.ImageURL)
	record, err := scanSQLite(row)
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return record, err
	}
	if lookup.OriginalID == "" {
		return nil, nil
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM watchfaces WHERE original_id = ? ORDER BY created_at LIMIT 1`,
		lookup.OriginalID)
	record, err = scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// Insert stores record as a new active row
func (s *SQLiteStore) Insert(ctx context.Context, record *types.CandidateRecord) (*types.StoredRecord, error) {
	now := s.now().UTC()
	stored := &types.StoredRecord{
		ID:              uuid.NewString(),
		CandidateRecord: *record,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tags, compat, err := encodeLists(record)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO watchfaces (`+sqliteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, record.Name, record.Description, record.Category, record.ImageURL,
		record.DownloadURL, record.Price, record.Author, record.Rating, record.Downloads,
		tags, compat, record.Metadata.SourceURL, record.Metadata.OriginalID, record.Metadata.FaceID,
		formatTime(record.Metadata.ScrapedAt), true, formatTime(now), formatTime(now), nil)
	if err != nil {
		return nil, fmt.Errorf("insert watchface: %w", err)
	}
	return stored, nil
}

// Update overwrites the row with record's id
func (s *SQLiteStore) Update(ctx context.Context, record *types.StoredRecord) (*types.StoredRecord, error) {
	now := s.now().UTC()
	tags, compat, err := encodeLists(&record.CandidateRecord)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE watchfaces SET
			name = ?, description = ?, category = ?, image_url = ?, download_url = ?, price = ?,
			author = ?, rating = ?, downloads = ?, tags = ?, compatibility = ?, source_url = ?,
			original_id = ?, face_id = ?, scraped_at = ?, is_active = ?, updated_at = ?, last_updated = ?
		 WHERE id = ?`,
		record.Name, record.Description, record.Category, record.ImageURL, record.DownloadURL, record.Price,
		record.Author, record.Rating, record.Downloads, tags, compat, record.Metadata.SourceURL,
		record.Metadata.OriginalID, record.Metadata.FaceID, formatTime(record.Metadata.ScrapedAt),
		record.IsActive, formatTime(now), formatTime(now), record.ID)
	if err != nil {
		return nil, fmt.Errorf("update watchface: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("record %s not found", record.ID)
	}

	updated := *record
	updated.UpdatedAt = now
	updated.LastUpdated = &now
	return &updated, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLite(row *sql.Row) (*types.StoredRecord, error) {
	var (
		r                               types.StoredRecord
		rating                          sql.NullFloat64
		tags, compat                    string
		scrapedAt, createdAt, updatedAt string
		lastUpdated                     sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Category, &r.ImageURL, &r.DownloadURL,
		&r.Price, &r.Author, &rating, &r.Downloads, &tags, &compat, &r.Metadata.SourceURL,
		&r.Metadata.OriginalID, &r.Metadata.FaceID, &scrapedAt, &r.IsActive, &createdAt,
		&updatedAt, &lastUpdated)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		v := rating.Float64
		r.Rating = &v
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(compat), &r.Compatibility); err != nil {
		return nil, fmt.Errorf("decode compatibility: %w", err)
	}
	r.Metadata.ScrapedAt = parseTime(scrapedAt)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if lastUpdated.Valid {
		t := parseTime(lastUpdated.String)
		r.LastUpdated = &t
	}
	return &r, nil
}

func encodeLists(record *types.CandidateRecord) (string, string, error) {
	tags, err := json.Marshal(nonNil(record.Tags))
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	compat, err := json.Marshal(nonNil(record.Compatibility))
	if err != nil {
		return "", "", fmt.Errorf("encode compatibility: %w", err)
	}
	return string(tags), string(compat), nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTime also accepts RFC 3339 values written by earlier versions
func parseTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

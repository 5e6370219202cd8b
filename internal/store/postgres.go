package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"watchface-scraper/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS watchfaces (
	id            uuid PRIMARY KEY,
	name          text NOT NULL,
	description   text NOT NULL DEFAULT '',
	category      text NOT NULL DEFAULT '',
	image_url     text NOT NULL,
	download_url  text NOT NULL DEFAULT '',
	price         text NOT NULL DEFAULT '',
	author        text NOT NULL DEFAULT '',
	rating        double precision,
	downloads     integer NOT NULL DEFAULT 0,
	tags          text[] NOT NULL DEFAULT '{}',
	compatibility text[] NOT NULL DEFAULT '{}',
	source_url    text NOT NULL DEFAULT '',
	original_id   text NOT NULL DEFAULT '',
	face_id       text NOT NULL DEFAULT '',
	scraped_at    timestamptz,
	is_active     boolean NOT NULL DEFAULT true,
	created_at    timestamptz NOT NULL,
	updated_at    timestamptz NOT NULL,
	last_updated  timestamptz
);
CREATE INDEX IF NOT EXISTS idx_watchfaces_name_image ON watchfaces(name, image_url);
CREATE INDEX IF NOT EXISTS idx_watchfaces_original_id ON watchfaces(original_id);
`

const postgresColumns = `id::text, name, description, category, image_url, download_url, price, author,
	rating, downloads, tags, compatibility, source_url, original_id, face_id, scraped_at,
	is_active, created_at, updated_at, last_updated`

// PostgresStore persists records in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn and applies the schema
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// FindExisting looks the record up by dedup key first, then by original id
func (p *PostgresStore) FindExisting(ctx context.Context, lookup types.Lookup) (*types.StoredRecord, error) {
	record, err := scanPostgres(p.pool.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM watchfaces WHERE name = $1 AND image_url = $2 ORDER BY created_at LIMIT 1`,
		lookup.Name, lookup.ImageURL))
	if err == nil || !errors.Is(err, pgx.ErrNoRows) {
		return record, err
	}
	if lookup.OriginalID == "" {
		return nil, nil
	}

	record, err = scanPostgres(p.pool.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM watchfaces WHERE original_id = $1 ORDER BY created_at LIMIT 1`,
		lookup.OriginalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// Insert stores record as a new active row
func (p *PostgresStore) Insert(ctx context.Context, record *types.CandidateRecord) (*types.StoredRecord, error) {
	now := p.now().UTC()
	stored := &types.StoredRecord{
		ID:              uuid.NewString(),
		CandidateRecord: *record,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO watchfaces (id, name, description, category, image_url, download_url, price, author,
			rating, downloads, tags, compatibility, source_url, original_id, face_id, scraped_at,
			is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, true, $17, $17)`,
		stored.ID, record.Name, record.Description, record.Category, record.ImageURL, record.DownloadURL,
		record.Price, record.Author, record.Rating, record.Downloads, nonNil(record.Tags),
		nonNil(record.Compatibility), record.Metadata.SourceURL, record.Metadata.OriginalID,
		record.Metadata.FaceID, nullTime(record.Metadata.ScrapedAt), now)
	if err != nil {
		return nil, fmt.Errorf("insert watchface: %w", err)
	}
	return stored, nil
}

// Update overwrites the row with record's id
func (p *PostgresStore) Update(ctx context.Context, record *types.StoredRecord) (*types.StoredRecord, error) {
	now := p.now().UTC()
	tag, err := p.pool.Exec(ctx,
		`UPDATE watchfaces SET
			name = $2, description = $3, category = $4, image_url = $5, download_url = $6, price = $7,
			author = $8, rating = $9, downloads = $10, tags = $11, compatibility = $12, source_url = $13,
			original_id = $14, face_id = $15, scraped_at = $16, is_active = $17, updated_at = $18,
			last_updated = $18
		 WHERE id = $1`,
		record.ID, record.Name, record.Description, record.Category, record.ImageURL, record.DownloadURL,
		record.Price, record.Author, record.Rating, record.Downloads, nonNil(record.Tags),
		nonNil(record.Compatibility), record.Metadata.SourceURL, record.Metadata.OriginalID,
		record.Metadata.FaceID, nullTime(record.Metadata.ScrapedAt), record.IsActive, now)
	if err != nil {
		return nil, fmt.Errorf("update watchface: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("record %s not found", record.ID)
	}

	updated := *record
	updated.UpdatedAt = now
	updated.LastUpdated = &now
	return &updated, nil
}

// Close releases the pool
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanPostgres(row pgx.Row) (*types.StoredRecord, error) {
	var (
		r         types.StoredRecord
		scrapedAt *time.Time
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Category, &r.ImageURL, &r.DownloadURL,
		&r.Price, &r.Author, &r.Rating, &r.Downloads, &r.Tags, &r.Compatibility, &r.Metadata.SourceURL,
		&r.Metadata.OriginalID, &r.Metadata.FaceID, &scrapedAt, &r.IsActive, &r.CreatedAt,
		&r.UpdatedAt, &r.LastUpdated)
	if err != nil {
		return nil, err
	}
	if scrapedAt != nil {
		r.Metadata.ScrapedAt = *scrapedAt
	}
	return &r, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"watchface-scraper/internal/types"
)

// MemoryStore keeps records in process. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.StoredRecord
	order   []string
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*types.StoredRecord),
		now:     time.Now,
	}
}

// FindExisting looks the record up by dedup key first, then by original id
func (m *MemoryStore) FindExisting(ctx context.Context, lookup types.Lookup) (*types.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		r := m.records[id]
		if r.Name == lookup.Name && r.ImageURL == lookup.ImageURL {
			return cloneStored(r), nil
		}
	}
	if lookup.OriginalID == "" {
		return nil, nil
	}
	for _, id := range m.order {
		r := m.records[id]
		if r.Metadata.OriginalID == lookup.OriginalID {
			return cloneStored(r), nil
		}
	}
	return nil, nil
}

// Insert stores a copy of record under a new id
func (m *MemoryStore) Insert(ctx context.Context, record *types.CandidateRecord) (*types.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.now()
	stored := &types.StoredRecord{
		ID:              uuid.NewString(),
		CandidateRecord: cloneCandidate(*record),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	m.mu.Lock()
	m.records[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	m.mu.Unlock()

	return cloneStored(stored), nil
}

// Update replaces the record with the same id
func (m *MemoryStore) Update(ctx context.Context, record *types.StoredRecord) (*types.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[record.ID]
	if !ok {
		return nil, fmt.Errorf("record %s not found", record.ID)
	}
	now := m.now()
	updated := cloneStored(record)
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = now
	updated.LastUpdated = &now
	m.records[record.ID] = updated

	return cloneStored(updated), nil
}

// Records returns every stored record in insertion order
func (m *MemoryStore) Records() []*types.StoredRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.StoredRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneStored(m.records[id]))
	}
	return out
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func cloneCandidate(c types.CandidateRecord) types.CandidateRecord {
	c.Tags = append([]string{}, c.Tags...)
	c.Compatibility = append([]string{}, c.Compatibility...)
	if c.Rating != nil {
		rating := *c.Rating
		c.Rating = &rating
	}
	return c
}

func cloneStored(r *types.StoredRecord) *types.StoredRecord {
	out := *r
	out.CandidateRecord = cloneCandidate(r.CandidateRecord)
	if r.LastUpdated != nil {
		t := *r.LastUpdated
		out.LastUpdated = &t
	}
	return &out
}

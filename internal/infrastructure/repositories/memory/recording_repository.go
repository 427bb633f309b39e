package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"
)

type MemoryRecordingRepository struct {
	records map[domain.RecordingID]*domain.RecordingRecord
	mu      sync.RWMutex
}

func NewMemoryRecordingRepository() ports.RecordingRepository {
	return &MemoryRecordingRepository{
		records: make(map[domain.RecordingID]*domain.RecordingRecord),
	}
}

func (r *MemoryRecordingRepository) Save(ctx context.Context, record *domain.RecordingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return fmt.Errorf("recording record already exists: %s", record.ID)
	}

	stored := *record
	r.records[record.ID] = &stored
	return nil
}

func (r *MemoryRecordingRepository) GetByID(ctx context.Context, id domain.RecordingID) (*domain.RecordingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[id]
	if !exists {
		return nil, domain.ErrRecordNotFound
	}

	out := *record
	return &out, nil
}

func (r *MemoryRecordingRepository) List(ctx context.Context, limit int) ([]*domain.RecordingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*domain.RecordingRecord, 0, len(r.records))
	for _, record := range r.records {
		out := *record
		records = append(records, &out)
	}

	// Newest first
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

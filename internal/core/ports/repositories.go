package ports

import (
	"context"

	"petwatch/internal/core/domain"
)

// RecordingRepository stores metadata records for finalized recordings so
// the event pipeline can associate media artifacts with detected activity.
type RecordingRepository interface {
	Save(ctx context.Context, record *domain.RecordingRecord) error
	GetByID(ctx context.Context, id domain.RecordingID) (*domain.RecordingRecord, error)
	List(ctx context.Context, limit int) ([]*domain.RecordingRecord, error)
}

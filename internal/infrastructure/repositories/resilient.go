package repositories

import (
	"context"
	"errors"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"
	"petwatch/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// resilientRecordingRepository guards a remote-backed repository with a
// circuit breaker, so a dead Redis fails recording-metadata calls fast
// instead of stalling stream control operations behind network timeouts.
type resilientRecordingRepository struct {
	inner   ports.RecordingRepository
	breaker *circuitbreaker.CircuitBreaker
}

func newResilientRecordingRepository(inner ports.RecordingRepository, logger *zap.SugaredLogger) ports.RecordingRepository {
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("recording repository circuit state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return &resilientRecordingRepository{
		inner:   inner,
		breaker: breaker,
	}
}

func (r *resilientRecordingRepository) Save(ctx context.Context, record *domain.RecordingRecord) error {
	return r.breaker.Execute(func() error {
		return r.inner.Save(ctx, record)
	})
}

func (r *resilientRecordingRepository) GetByID(ctx context.Context, id domain.RecordingID) (*domain.RecordingRecord, error) {
	var record *domain.RecordingRecord
	var notFound error
	err := r.breaker.Execute(func() error {
		var err error
		record, err = r.inner.GetByID(ctx, id)
		if errors.Is(err, domain.ErrRecordNotFound) {
			// Not-found is a healthy answer, not a dependency failure.
			notFound = err
			return nil
		}
		return err
	})
	if notFound != nil {
		return nil, notFound
	}
	return record, err
}

func (r *resilientRecordingRepository) List(ctx context.Context, limit int) ([]*domain.RecordingRecord, error) {
	var records []*domain.RecordingRecord
	err := r.breaker.Execute(func() error {
		var err error
		records, err = r.inner.List(ctx, limit)
		return err
	})
	return records, err
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisRecordingRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRecordingRepository(client *redis.Client) ports.RecordingRepository {
	return &RedisRecordingRepository{
		client: client,
		prefix: "petwatch:recording:",
	}
}

func (r *RedisRecordingRepository) recordKey(id domain.RecordingID) string {
	return r.prefix + string(id)
}

func (r *RedisRecordingRepository) indexKey() string {
	return r.prefix + "by_time"
}

func (r *RedisRecordingRepository) Save(ctx context.Context, record *domain.RecordingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal recording record: %w", err)
	}

	key := r.recordKey(record.ID)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set recording record in Redis: %w", err)
	}

	// Index by start time so listing can return newest first.
	score := float64(record.StartedAt.UnixNano())
	if err := r.client.ZAdd(ctx, r.indexKey(), redis.Z{Score: score, Member: string(record.ID)}).Err(); err != nil {
		return fmt.Errorf("failed to index recording record: %w", err)
	}

	return nil
}

func (r *RedisRecordingRepository) GetByID(ctx context.Context, id domain.RecordingID) (*domain.RecordingRecord, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording record from Redis: %w", err)
	}

	var record domain.RecordingRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording record: %w", err)
	}
	return &record, nil
}

func (r *RedisRecordingRepository) List(ctx context.Context, limit int) ([]*domain.RecordingRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recording records: %w", err)
	}

	records := make([]*domain.RecordingRecord, 0, len(ids))
	for _, id := range ids {
		record, err := r.GetByID(ctx, domain.RecordingID(id))
		if err == domain.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

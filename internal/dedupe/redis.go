package dedupe

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "wcn:last:"

// RedisStore shares the last-notification memory between processes. Each
// phone is one hash {status, ts_ms, tracking_code} without expiry.
type RedisStore struct {
	rdb       redis.Cmdable
	keyPrefix string
	now       func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb redis.Cmdable, keyPrefix string, now func() time.Time) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{rdb: rdb, keyPrefix: keyPrefix, now: now}
}

func (s *RedisStore) key(phone string) string {
	return s.keyPrefix + util.NormalizePhone(phone)
}

func (s *RedisStore) Record(ctx context.Context, phone string, rec model.LastNotification) error {
	err := s.rdb.HSet(ctx, s.key(phone), map[string]any{
		"status":        rec.Status.String(),
		"ts_ms":         rec.Timestamp.UnixMilli(),
		"tracking_code": rec.TrackingCode,
	}).Err()
	if err != nil {
		return fmt.Errorf("dedupe record: %w", err)
	}
	return nil
}

func (s *RedisStore) Last(ctx context.Context, phone string) (*model.LastNotification, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(phone)).Result()
	if err != nil {
		return nil, fmt.Errorf("dedupe last: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	ms, err := strconv.ParseInt(vals["ts_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("dedupe last: bad ts_ms %q: %w", vals["ts_ms"], err)
	}

	return &model.LastNotification{
		Status:       model.StatusKind(vals["status"]),
		Timestamp:    time.UnixMilli(ms),
		TrackingCode: vals["tracking_code"],
	}, nil
}

func (s *RedisStore) HasRecent(ctx context.Context, phone string, status model.StatusKind, window time.Duration) (bool, error) {
	rec, err := s.Last(ctx, phone)
	if err != nil {
		return false, err
	}
	return isRecent(rec, status, window, s.now()), nil
}

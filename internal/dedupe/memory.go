package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/util"
)

// MemoryStore keeps records in process memory; they are lost on restart.
// Records are never evicted, only overwritten.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.LastNotification
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{records: make(map[string]model.LastNotification), now: now}
}

func (s *MemoryStore) Record(_ context.Context, phone string, rec model.LastNotification) error {
	key := util.NormalizePhone(phone)

	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Last(_ context.Context, phone string) (*model.LastNotification, error) {
	key := util.NormalizePhone(phone)

	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) HasRecent(ctx context.Context, phone string, status model.StatusKind, window time.Duration) (bool, error) {
	rec, err := s.Last(ctx, phone)
	if err != nil {
		return false, err
	}
	return isRecent(rec, status, window, s.now()), nil
}

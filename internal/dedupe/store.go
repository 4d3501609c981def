// Package dedupe remembers the last notification sent to each phone number.
package dedupe

import (
	"context"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/model"
)

// DefaultWindow is the span in which a repeat of the same status is recent.
const DefaultWindow = 5 * time.Minute

// Store is keyed by phone number. Implementations normalize the phone with
// util.NormalizePhone, so equivalent spellings share one record.
type Store interface {
	Record(ctx context.Context, phone string, rec model.LastNotification) error
	Last(ctx context.Context, phone string) (*model.LastNotification, error)
	HasRecent(ctx context.Context, phone string, status model.StatusKind, window time.Duration) (bool, error)
}

// isRecent compares statuses exactly; a zero window falls back to DefaultWindow.
func isRecent(rec *model.LastNotification, status model.StatusKind, window time.Duration, now time.Time) bool {
	if rec == nil || rec.Status != status {
		return false
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return now.Sub(rec.Timestamp) < window
}

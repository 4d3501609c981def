// Package settings persists NotificationSettings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmehdipour/washcorner-notify/internal/model"
)

var ErrInvalidSettings = errors.New("invalid notification settings")

// Store loads and replaces the notification settings document.
type Store interface {
	Load(ctx context.Context) (model.NotificationSettings, error)
	Save(ctx context.Context, s model.NotificationSettings) error
}

// FileStore keeps the settings in a single JSON file. The file is re-read on
// every Load so edits made by another process are picked up immediately.
// Concurrent Saves are last-write-wins.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

// Load returns the persisted settings, creating the file with Defaults when it
// does not exist yet. Templates missing from the file are backfilled.
func (f *FileStore) Load(ctx context.Context) (model.NotificationSettings, error) {
	if err := ctx.Err(); err != nil {
		return model.NotificationSettings{}, err
	}

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		def := Defaults()
		if err := f.write(def); err != nil {
			return model.NotificationSettings{}, fmt.Errorf("create default settings: %w", err)
		}
		return def, nil
	}
	if err != nil {
		return model.NotificationSettings{}, fmt.Errorf("read settings %s: %w", f.path, err)
	}

	var s model.NotificationSettings
	if err := json.Unmarshal(b, &s); err != nil {
		return model.NotificationSettings{}, fmt.Errorf("decode settings %s: %w", f.path, err)
	}
	s.Templates = backfill(s.Templates)

	return s, nil
}

// Save replaces the whole document.
func (f *FileStore) Save(ctx context.Context, s model.NotificationSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(s); err != nil {
		return err
	}
	return f.write(s)
}

func (f *FileStore) write(s model.NotificationSettings) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

// Validate enforces one non-empty template per status.
func Validate(s model.NotificationSettings) error {
	for _, st := range model.StatusKinds {
		tpl, _ := s.Templates.Lookup(st)
		if strings.TrimSpace(tpl) == "" {
			return fmt.Errorf("%w: empty template for %q", ErrInvalidSettings, st)
		}
	}
	return nil
}

func backfill(t model.Templates) model.Templates {
	def := DefaultTemplates()
	if strings.TrimSpace(t.Pending) == "" {
		t.Pending = def.Pending
	}
	if strings.TrimSpace(t.InProgress) == "" {
		t.InProgress = def.InProgress
	}
	if strings.TrimSpace(t.Completed) == "" {
		t.Completed = def.Completed
	}
	if strings.TrimSpace(t.Cancelled) == "" {
		t.Cancelled = def.Cancelled
	}
	return t
}

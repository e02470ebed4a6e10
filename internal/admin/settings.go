package admin

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/settings"
)

// SettingsCollection is the key/value settings collection.
const SettingsCollection = "Config"

// Settings edits the settings collection in bulk: the operator edits any
// number of values and only the changed rows are written back.
type Settings struct {
	store record.Store
	pub   event.Publisher
	log   zerolog.Logger

	mu      sync.Mutex
	tracker *settings.Tracker
	loaded  bool
}

// NewSettings creates a Settings service. Save loads the baseline itself
// when Load has not been called.
func NewSettings(store record.Store, pub event.Publisher, log zerolog.Logger) *Settings {
	if pub == nil {
		pub = event.Nop
	}
	return &Settings{store: store, pub: pub, log: log, tracker: settings.NewTracker(nil)}
}

// Load reads the settings and makes them the new baseline.
func (s *Settings) Load(ctx context.Context) ([]settings.Row, error) {
	records, err := s.store.Read(ctx, SettingsCollection)
	if err != nil {
		return nil, remote.Wrap("readRecords", err)
	}
	rows := settings.RowsFromRecords(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Rebaseline(rows)
	s.loaded = true
	return s.tracker.Rows(), nil
}

// SettingsSaveResult reports which rows were written and the settings re-read
// afterwards.
type SettingsSaveResult struct {
	Changed []int          `json:"changed"`
	Rows    []settings.Row `json:"rows"`
}

// Save applies edits (row index to new value), writes every changed row in
// ascending order, then re-reads and re-baselines. When a write fails the
// edits stay in place so the operator can retry. An edit naming a row
// outside the baseline fails with ErrUnknownRow and applies nothing.
func (s *Settings) Save(ctx context.Context, edits map[int]string) (*SettingsSaveResult, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		if _, err := s.Load(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	n := len(s.tracker.Rows())
	for row := range edits {
		if row < 0 || row >= n {
			s.mu.Unlock()
			return nil, fmt.Errorf("row %d of %d: %w", row, n, ErrUnknownRow)
		}
	}
	for row, v := range edits {
		s.tracker.Set(row, v)
	}
	updates := s.tracker.Commit()
	s.mu.Unlock()

	changed := make([]int, 0, len(updates))
	for _, u := range updates {
		if err := s.store.Update(ctx, SettingsCollection, u.Row, u.Values); err != nil {
			s.log.Warn().Err(err).Int("row", u.Row).Msg("admin: settings write failed")
			return nil, remote.Wrap("updateRecord", err)
		}
		changed = append(changed, u.Row)
	}
	if len(changed) > 0 {
		s.pub.Publish(ctx, event.NewSettingsSaved(event.SettingsSavedPayload{Rows: changed}))
	}

	rows, err := s.refreshAfterWrite(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsSaveResult{Changed: changed, Rows: rows}, nil
}

// refreshAfterWrite re-reads the settings once every write has returned and
// re-baselines the tracker.
func (s *Settings) refreshAfterWrite(ctx context.Context) ([]settings.Row, error) {
	return s.Load(ctx)
}

// Pending returns the rows currently differing from the baseline.
func (s *Settings) Pending() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.ChangedRows()
}

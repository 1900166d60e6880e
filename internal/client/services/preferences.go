package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/platform"
	"github.com/dmitrijs2005/taskdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
)

// ThemeState is what observers of the preference store receive.
type ThemeState struct {
	Preference models.Preference
	Resolved   models.Theme
}

// PreferenceStore owns the theme preference and the resolved theme.
type PreferenceStore struct {
	repo   metadata.Repository
	source platform.SchemeSource
	logger logging.Logger

	mu       sync.Mutex
	pref     models.Preference
	platform models.Theme
	active   bool
	stop     func()

	observers observers[ThemeState]
}

func NewPreferenceStore(repo metadata.Repository, source platform.SchemeSource, logger logging.Logger) *PreferenceStore {
	return &PreferenceStore{
		repo:     repo,
		source:   source,
		logger:   logger.With("component", "preferences"),
		pref:     models.PreferenceSystem,
		platform: source.Current(),
	}
}

// Activate loads the stored preference and starts following the platform
// scheme if the preference is system. Calling it again is a no-op.
func (s *PreferenceStore) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	pref := models.PreferenceSystem
	raw, err := s.repo.Get(ctx, metadata.KeyTheme)
	if err != nil {
		return fmt.Errorf("load theme preference: %w", err)
	}
	if p, ok := models.ParsePreference(string(raw)); ok {
		pref = p
	} else if len(raw) > 0 {
		s.logger.Warn(ctx, "unknown stored theme preference", "value", string(raw))
	}

	s.mu.Lock()
	s.active = true
	s.pref = pref
	s.platform = s.source.Current()
	state := s.stateLocked()
	s.mu.Unlock()

	s.syncWatch()
	s.observers.notify(state)
	return nil
}

// Get returns the current preference and resolved theme.
func (s *PreferenceStore) Get() ThemeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *PreferenceStore) stateLocked() ThemeState {
	return ThemeState{Preference: s.pref, Resolved: s.pref.Resolve(s.platform)}
}

// Set persists p and applies it. If persisting fails the state is unchanged.
func (s *PreferenceStore) Set(ctx context.Context, p models.Preference) (ThemeState, error) {
	if _, ok := models.ParsePreference(string(p)); !ok {
		return s.Get(), fmt.Errorf("unknown theme preference %q", p)
	}
	if err := s.repo.Set(ctx, metadata.KeyTheme, []byte(p)); err != nil {
		return s.Get(), fmt.Errorf("save theme preference: %w", err)
	}

	s.mu.Lock()
	s.pref = p
	if p == models.PreferenceSystem {
		s.platform = s.source.Current()
	}
	state := s.stateLocked()
	s.mu.Unlock()

	s.syncWatch()
	s.observers.notify(state)
	return state, nil
}

// Cycle advances light, dark, system, light.
func (s *PreferenceStore) Cycle(ctx context.Context) (ThemeState, error) {
	return s.Set(ctx, s.Get().Preference.Next())
}

// Subscribe registers fn for changes of preference or resolved theme.
func (s *PreferenceStore) Subscribe(fn func(ThemeState)) (unsubscribe func()) {
	return s.observers.add(fn)
}

// Close stops following the platform scheme.
func (s *PreferenceStore) Close() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	s.syncWatch()
}

// syncWatch starts or stops the platform subscription so that it runs only
// while the store is active with the system preference. Watch and stop are
// called without the lock held since a source may block on its callback.
func (s *PreferenceStore) syncWatch() {
	s.mu.Lock()
	want := s.active && s.pref == models.PreferenceSystem
	var stop func()
	if !want && s.stop != nil {
		stop, s.stop = s.stop, nil
	}
	start := want && s.stop == nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if !start {
		return
	}

	stop = s.source.Watch(s.onPlatform)
	s.mu.Lock()
	if s.stop == nil && s.active && s.pref == models.PreferenceSystem {
		s.stop, stop = stop, nil
	}
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *PreferenceStore) onPlatform(theme models.Theme) {
	s.mu.Lock()
	if !s.active || s.pref != models.PreferenceSystem || s.platform == theme {
		s.mu.Unlock()
		return
	}
	s.platform = theme
	state := s.stateLocked()
	s.mu.Unlock()

	s.observers.notify(state)
}

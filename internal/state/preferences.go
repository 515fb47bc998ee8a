package state

import (
	"context"
	"fmt"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
)

// PreferencesState is the notification preferences slice.
type PreferencesState struct {
	Preferences *domain.NotificationPreferences
	IsLoading   bool
	IsSaving    bool
	Error       string
}

func (p PreferencesState) clone() PreferencesState {
	p.Preferences = p.Preferences.Clone()
	return p
}

func (s *Store) updatePreferences(ctx context.Context, fn func(*PreferencesState)) {
	s.update(ctx, events.EventPreferencesChanged, func(st *State) interface{} {
		fn(&st.Preferences)
		return st.Preferences.clone()
	})
}

// FetchPreferences loads the preference set of userID.
func (s *Store) FetchPreferences(ctx context.Context, userID int64) error {
	s.updatePreferences(ctx, func(p *PreferencesState) {
		p.IsLoading = true
		p.Error = ""
	})
	prefs, err := s.notes.GetPreferences(ctx, userID)
	s.updatePreferences(ctx, func(p *PreferencesState) {
		p.IsLoading = false
		if err != nil {
			p.Error = errorMessage(err, "Failed to fetch preferences")
			return
		}
		p.Preferences = prefs.Clone()
	})
	return err
}

// UpdatePreferences resets local state to items right away, then saves them.
// The backend reply is not merged back; a failure only sets the error.
func (s *Store) UpdatePreferences(ctx context.Context, items []domain.PreferenceItem) error {
	submitted := append([]domain.PreferenceItem(nil), items...)
	s.updatePreferences(ctx, func(p *PreferencesState) {
		if p.Preferences == nil {
			p.Preferences = &domain.NotificationPreferences{}
		}
		p.Preferences.Preferences = submitted
		p.IsSaving = true
		p.Error = ""
	})
	_, err := s.notes.UpdatePreferences(ctx, submitted)
	s.updatePreferences(ctx, func(p *PreferencesState) {
		p.IsSaving = false
		if err != nil {
			p.Error = errorMessage(err, "Failed to update preferences")
		}
	})
	return err
}

// TogglePreference sets enabled on item index and moves every channel with it.
func (s *Store) TogglePreference(ctx context.Context, index int, enabled bool) error {
	var err error
	s.updatePreferences(ctx, func(p *PreferencesState) {
		if p.Preferences == nil || index < 0 || index >= len(p.Preferences.Preferences) {
			err = fmt.Errorf("preference %d: out of range", index)
			return
		}
		items := append([]domain.PreferenceItem(nil), p.Preferences.Preferences...)
		items[index] = items[index].WithEnabled(enabled)
		p.Preferences.Preferences = items
	})
	return err
}

package userdata

import (
	"context"
	"fmt"
	"strings"
)

// Preferences are the user's display settings.
type Preferences struct {
	Currency      string `json:"currency"`
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
}

// DefaultPreferences is returned until the user saves something.
func DefaultPreferences() Preferences {
	return Preferences{Currency: "INR", Theme: "dark", Notifications: true}
}

// PreferencesUpdate carries the fields to change. Nil fields are kept.
type PreferencesUpdate struct {
	Currency      *string `json:"currency,omitempty"`
	Theme         *string `json:"theme,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
}

// Preferences returns the stored preferences merged over the defaults.
func (s *Store) Preferences(ctx context.Context) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences(ctx)
}

func (s *Store) preferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences()
	if err := s.load(ctx, keyPreferences, &p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// UpdatePreferences merges u into the stored preferences.
func (s *Store) UpdatePreferences(ctx context.Context, u PreferencesUpdate) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.preferences(ctx)
	if err != nil {
		return Preferences{}, err
	}
	if u.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*u.Currency))
		if c == "" {
			return Preferences{}, fmt.Errorf("%w: currency must not be empty", ErrInvalid)
		}
		p.Currency = c
	}
	if u.Theme != nil {
		switch *u.Theme {
		case "dark", "light":
			p.Theme = *u.Theme
		default:
			return Preferences{}, fmt.Errorf("%w: theme %q: want dark|light", ErrInvalid, *u.Theme)
		}
	}
	if u.Notifications != nil {
		p.Notifications = *u.Notifications
	}
	return p, s.save(ctx, keyPreferences, p)
}

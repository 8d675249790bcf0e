// Package settings holds runtime-editable site settings, including the
// maintenance switch. A Store is created at start-up and passed to whatever
// needs it; there is no package-level state.
package settings

import (
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-platform/pkg/platform"
)

// Settings is the editable site configuration.
type Settings struct {
	SiteName           string    `json:"site_name"`
	ContactEmail       string    `json:"contact_email,omitempty"`
	MaintenanceMode    bool      `json:"maintenance_mode"`
	MaintenanceMessage string    `json:"maintenance_message,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Update is a partial change to Settings. Nil means unchanged.
type Update struct {
	SiteName           *string `json:"site_name" validate:"omitempty,max=200"`
	ContactEmail       *string `json:"contact_email" validate:"omitempty,email"`
	MaintenanceMode    *bool   `json:"maintenance_mode"`
	MaintenanceMessage *string `json:"maintenance_message" validate:"omitempty,max=500"`
}

// Store guards a Settings value.
type Store struct {
	mu      sync.RWMutex
	current Settings
	now     func() time.Time
}

// NewStore creates a store seeded with initial
func NewStore(initial Settings) *Store {
	if initial.UpdatedAt.IsZero() {
		initial.UpdatedAt = time.Now().UTC()
	}
	return &Store{current: initial, now: time.Now}
}

// Get returns a snapshot of the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Maintenance reports whether writes are paused and the message to show
func (s *Store) Maintenance() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.MaintenanceMode, s.current.MaintenanceMessage
}

// Apply changes the settings on behalf of actor. Only platform admins may
// change settings.
func (s *Store) Apply(actor *platform.Actor, update Update) (Settings, error) {
	if err := platform.RequirePlatformAdmin(actor); err != nil {
		return Settings{}, err
	}
	if err := platform.ValidateStruct(update); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if update.SiteName != nil {
		next.SiteName = strings.TrimSpace(*update.SiteName)
	}
	if update.ContactEmail != nil {
		next.ContactEmail = strings.ToLower(strings.TrimSpace(*update.ContactEmail))
	}
	if update.MaintenanceMode != nil {
		next.MaintenanceMode = *update.MaintenanceMode
	}
	if update.MaintenanceMessage != nil {
		next.MaintenanceMessage = *update.MaintenanceMessage
	}
	next.UpdatedAt = s.now().UTC()

	s.current = next
	return next, nil
}

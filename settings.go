package whatchanged

import (
	"context"
	"strings"
	"time"
)

// Default settings used until the user changes them.
const (
	DefaultRetentionDays   = 90
	DefaultMinSignificance = 2.0
)

// Settings holds user preferences that shape pruning and change reporting.
type Settings struct {
	// RetentionDays is how long snapshots are kept.
	RetentionDays int `json:"retentionDays"`

	// MinSignificance is the percentage (0-100) of changed text below
	// which a change is not surfaced.
	MinSignificance float64 `json:"minSignificance"`

	// BlockedDomains are never captured. Subdomains are blocked too.
	BlockedDomains []string `json:"blockedDomains"`
}

// DefaultSettings returns the settings used when none were saved.
func DefaultSettings() *Settings {
	return &Settings{
		RetentionDays:   DefaultRetentionDays,
		MinSignificance: DefaultMinSignificance,
		BlockedDomains:  []string{},
	}
}

// Retention returns the retention period as a duration.
func (s *Settings) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// MinSignificanceRatio returns MinSignificance as a fraction in [0,1],
// comparable with DiffResult.Significance.
func (s *Settings) MinSignificanceRatio() float64 {
	return s.MinSignificance / 100
}

// Validate returns an error if the settings contain invalid fields.
func (s *Settings) Validate() error {
	if s.RetentionDays <= 0 {
		return Errorf(EINVALID, "retention days must be positive")
	}
	if s.MinSignificance < 0 || s.MinSignificance > 100 {
		return Errorf(EINVALID, "min significance must be between 0 and 100")
	}
	for _, d := range s.BlockedDomains {
		if strings.TrimSpace(d) == "" {
			return Errorf(EINVALID, "blocked domain must not be empty")
		}
	}
	return nil
}

// SettingsService represents a service for reading and updating settings.
type SettingsService interface {
	// FindSettings returns the saved settings, or the defaults when none
	// have been saved.
	FindSettings(ctx context.Context) (*Settings, error)

	// UpdateSettings merges the update over the current settings and
	// saves the result.
	UpdateSettings(ctx context.Context, upd SettingsUpdate) (*Settings, error)
}

// SettingsUpdate represents fields that can be updated on the settings.
type SettingsUpdate struct {
	RetentionDays   *int     `json:"retentionDays"`
	MinSignificance *float64 `json:"minSignificance"`
	BlockedDomains  []string `json:"blockedDomains"`
}

// Apply merges the update into s. A nil BlockedDomains leaves the list
// unchanged; an empty non-nil slice clears it.
func (u SettingsUpdate) Apply(s *Settings) {
	if u.RetentionDays != nil {
		s.RetentionDays = *u.RetentionDays
	}
	if u.MinSignificance != nil {
		s.MinSignificance = *u.MinSignificance
	}
	if u.BlockedDomains != nil {
		s.BlockedDomains = u.BlockedDomains
	}
}

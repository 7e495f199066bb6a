package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwojciec/whatchanged"
)

// Compile-time interface verification.
var _ whatchanged.SettingsService = (*SettingsService)(nil)

// SettingsService implements whatchanged.SettingsService using SQLite.
// Settings live in a single row; defaults apply until the first update.
type SettingsService struct {
	db *DB
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(db *DB) *SettingsService {
	return &SettingsService{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindSettings returns the saved settings, or the defaults.
func (s *SettingsService) FindSettings(ctx context.Context) (*whatchanged.Settings, error) {
	return findSettings(ctx, s.db)
}

// UpdateSettings merges upd over the current settings and saves the result.
func (s *SettingsService) UpdateSettings(ctx context.Context, upd whatchanged.SettingsUpdate) (*whatchanged.Settings, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	settings, err := findSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	upd.Apply(settings)
	if settings.BlockedDomains == nil {
		settings.BlockedDomains = []string{}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	blocked, err := json.Marshal(settings.BlockedDomains)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blocked domains: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settings (id, retention_days, min_significance, blocked_domains)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			retention_days = excluded.retention_days,
			min_significance = excluded.min_significance,
			blocked_domains = excluded.blocked_domains
	`, settings.RetentionDays, settings.MinSignificance, string(blocked)); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settings: %w", err)
	}

	return settings, nil
}

func findSettings(ctx context.Context, q rowQuerier) (*whatchanged.Settings, error) {
	var settings whatchanged.Settings
	var blocked string

	err := q.QueryRowContext(ctx, `
		SELECT retention_days, min_significance, blocked_domains
		FROM settings
		WHERE id = 1
	`).Scan(&settings.RetentionDays, &settings.MinSignificance, &blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return whatchanged.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(blocked), &settings.BlockedDomains); err != nil {
		return nil, fmt.Errorf("failed to decode blocked domains: %w", err)
	}
	if settings.BlockedDomains == nil {
		settings.BlockedDomains = []string{}
	}

	return &settings, nil
}

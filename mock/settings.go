package mock

import (
	"context"

	"github.com/fwojciec/whatchanged"
)

var _ whatchanged.SettingsService = (*SettingsService)(nil)

// SettingsService is a mock implementation of whatchanged.SettingsService.
type SettingsService struct {
	FindSettingsFn   func(ctx context.Context) (*whatchanged.Settings, error)
	UpdateSettingsFn func(ctx context.Context, upd whatchanged.SettingsUpdate) (*whatchanged.Settings, error)
}

func (s *SettingsService) FindSettings(ctx context.Context) (*whatchanged.Settings, error) {
	return s.FindSettingsFn(ctx)
}

func (s *SettingsService) UpdateSettings(ctx context.Context, upd whatchanged.SettingsUpdate) (*whatchanged.Settings, error) {
	return s.UpdateSettingsFn(ctx, upd)
}

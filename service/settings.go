package service

import (
	"context"
	"errors"

	"github.com/zlnvch/placebot/settings"
	"github.com/zlnvch/placebot/store"
)

// LoadSettings pulls persisted settings into the live manager, falling back
// to defaults when nothing has been stored yet.
func (s *Service) LoadSettings(ctx context.Context) error {
	stored, err := s.Store.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return s.Settings.Update(settings.Default())
		}
		return err
	}
	return s.Settings.Update(stored)
}

func (s *Service) GetSettings() settings.Settings {
	return s.Settings.Get()
}

// UpdateSettings validates, persists, then installs the new settings. Live
// runners pick them up on their next wake.
func (s *Service) UpdateSettings(ctx context.Context, next settings.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.Store.PutSettings(ctx, next); err != nil {
		return err
	}
	return s.Settings.Update(next)
}

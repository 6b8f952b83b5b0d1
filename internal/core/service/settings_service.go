package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

type SettingsService struct {
	settings *repository.Repository[domain.Settings]
	log      logrus.FieldLogger
}

// NewSettingsService stores settings under the admin settings key; defaults
// is used until the first save.
func NewSettingsService(store port.KeyValueStore, keys repository.Keys, defaults domain.Settings, log logrus.FieldLogger) *SettingsService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	fallback := func() domain.Settings { return defaults }
	return &SettingsService{
		settings: repository.NewCollection(store, keys, repository.Settings, fallback, log).Global(),
		log:      log,
	}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.settings.Load(ctx)
}

func (s *SettingsService) Update(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := s.settings.Save(ctx, settings); err != nil {
		return domain.Settings{}, err
	}
	s.log.WithField("maintenance_mode", settings.General.MaintenanceMode).Info("settings updated")
	return settings, nil
}

func (s *SettingsService) MaintenanceMode(ctx context.Context) (bool, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return settings.General.MaintenanceMode, nil
}

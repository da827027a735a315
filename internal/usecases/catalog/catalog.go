package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/validation"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
)

type Service struct {
	CatalogRepo repository.ICatalogRepo
	PremiumRepo repository.IPremiumRepo
	Log         *slog.Logger
}

func New(catalogRepo repository.ICatalogRepo, premiumRepo repository.IPremiumRepo, log *slog.Logger) *Service {
	return &Service{
		CatalogRepo: catalogRepo,
		PremiumRepo: premiumRepo,
		Log:         log,
	}
}

// Load читает и проверяет файл каталога
func Load(path string) (*domain.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c domain.Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: catalog %s: %v", domain.ErrValidation, path, err)
	}
	if err := validation.Struct(&c); err != nil {
		return nil, err
	}
	for _, p := range c.Plans {
		if p.ID == "" || p.Price <= 0 || p.DurationDays <= 0 {
			return nil, fmt.Errorf("%w: plan %q needs id, positive price and duration", domain.ErrValidation, p.ID)
		}
	}
	return &c, nil
}

// Seed upsert по первичному ключу, повторный запуск ничего не дублирует
func (s *Service) Seed(ctx context.Context, c *domain.Catalog) error {
	for i := range c.Settings {
		if err := s.CatalogRepo.UpsertSettingDefinition(ctx, &c.Settings[i]); err != nil {
			return fmt.Errorf("upsert setting %q: %w", c.Settings[i].Key, err)
		}
	}
	for i := range c.Plans {
		if err := s.PremiumRepo.UpsertPlan(ctx, &c.Plans[i]); err != nil {
			return fmt.Errorf("upsert plan %q: %w", c.Plans[i].ID, err)
		}
	}

	s.Log.Info("catalog seeded", "settings", len(c.Settings), "plans", len(c.Plans))
	return nil
}

// SeedFile Load и Seed. Пустой путь пропускается
func (s *Service) SeedFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	c, err := Load(path)
	if err != nil {
		return err
	}
	return s.Seed(ctx, c)
}

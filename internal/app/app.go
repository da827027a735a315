package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
)

type App struct {
	Name  string
	Cfg   *Config
	Log   *slog.Logger
	Clock clock.Clock
}

func New(name string, cfg *Config) *App {
	return &App{
		Name:  name,
		Cfg:   cfg,
		Log:   logger.New(name, cfg.Log),
		Clock: clock.Real(),
	}
}

// Run блокирует до отмены контекста или фатальной ошибки одного из компонентов
func (a *App) Run(ctx context.Context) error {
	a.Log.Info("running learnify bot")

	deps, err := a.initDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to init dependencies: %w", err)
	}

	if err := a.bootstrap(ctx, deps); err != nil {
		return fmt.Errorf("failed to bootstrap: %w", err)
	}

	return a.runServices(ctx, deps)
}

// bootstrap каталог настроек и тарифов, задачи обновления токенов после рестарта
func (a *App) bootstrap(ctx context.Context, deps *Dependencies) error {
	if err := deps.Catalog.SeedFile(ctx, a.Cfg.Bot.CatalogPath); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	// просроченные токены обновляются здесь же, до старта планировщика
	if err := deps.Tokens.RestoreOnStartup(ctx); err != nil {
		a.Log.Error("failed to restore token refresh jobs", "error", err)
	}
	return nil
}

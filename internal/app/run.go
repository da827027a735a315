package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout      = 10 * time.Second
	deleteWebhookTimeout = 10 * time.Second
)

// runServices поднимает http, приём обновлений, очередь сброса кэша и
// планировщик. Любая фатальная ошибка останавливает остальных через gCtx
func (a *App) runServices(ctx context.Context, deps *Dependencies) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("starting http server", "host", a.Cfg.Server.Host, "port", a.Cfg.Server.Port)
		if err := deps.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if deps.TelegramPoller != nil {
		g.Go(func() error { return a.runPolling(gCtx, deps) })
	} else {
		a.Log.Info("telegram updates mode: webhook", "webhook_url", a.Cfg.Telegram.WebhookURL)
	}

	g.Go(func() error { return deps.InvalidationWorker.Run(gCtx) })

	for name, consumer := range deps.KafkaConsumers {
		g.Go(func() error {
			a.Log.Info("starting kafka consumer", "name", name)
			return consumer.Start(gCtx)
		})
	}

	if err := deps.JobScheduler.Start(gCtx); err != nil {
		a.Log.Error("failed to start job scheduler", "error", err)
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.shutdown(deps)
		return nil
	})

	if err := g.Wait(); err != nil {
		a.Log.Error("application error", "error", err)
		return err
	}
	return nil
}

// shutdown сначала перестаёт принимать запросы, затем дожидается фоновых
// задач и только после этого закрывает хранилища
func (a *App) shutdown(deps *Dependencies) {
	a.Log.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := deps.HTTPServer.Shutdown(ctx); err != nil {
		a.Log.Error("failed to shutdown http server", "error", err)
	}

	deps.FollowUps.Shutdown()
	deps.JobScheduler.Stop()

	closers := make([]namedCloser, 0, len(deps.KafkaConsumers)+len(deps.KafkaProducers)+2)
	for name, c := range deps.KafkaConsumers {
		closers = append(closers, namedCloser{"kafka consumer " + name, c.Close})
	}
	for name, p := range deps.KafkaProducers {
		closers = append(closers, namedCloser{"kafka producer " + name, p.Close})
	}
	closers = append(closers,
		namedCloser{"redis", deps.Cache.Close},
		namedCloser{"postgres", deps.DB.Close},
	)

	for _, c := range closers {
		if err := c.close(); err != nil {
			a.Log.Error("failed to close", "component", c.name, "error", err)
		}
	}

	a.Log.Info("application shutdown completed")
}

type namedCloser struct {
	name  string
	close func() error
}

// runPolling снимает webhook и читает обновления long polling'ом
func (a *App) runPolling(ctx context.Context, deps *Dependencies) error {
	deleteCtx, cancel := context.WithTimeout(ctx, deleteWebhookTimeout)
	defer cancel()

	if err := deps.TelegramClient.DeleteWebhook(deleteCtx); err != nil {
		a.Log.Warn("failed to delete webhook, continuing anyway", "error", err)
	}

	if err := deps.TelegramPoller.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telegram polling error: %w", err)
	}
	return nil
}

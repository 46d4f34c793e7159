package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/challenge-progress/internal/challenge"
	"github.com/terra-clan/challenge-progress/internal/completion"
	"github.com/terra-clan/challenge-progress/internal/config"
	"github.com/terra-clan/challenge-progress/internal/events"
	"github.com/terra-clan/challenge-progress/internal/leaderboard"
	"github.com/terra-clan/challenge-progress/internal/payload"
	"github.com/terra-clan/challenge-progress/internal/progress"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

// app holds the wired services shared by every subcommand
type app struct {
	backend     storage.Backend
	catalog     *challenge.Catalog
	normalizer  *challenge.Normalizer
	progress    *progress.Store
	leaderboard *leaderboard.Store
	bus         *events.Bus
	coordinator *completion.Coordinator
	payloads    *payload.Accessor
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	slog.Info("storage opened", "driver", cfg.Storage.Driver, "key_prefix", cfg.Storage.KeyPrefix)

	catalog := challenge.NewCatalog()
	if cfg.Catalog.Path != "" {
		if err := catalog.LoadFromFile(cfg.Catalog.Path); err != nil {
			slog.Warn("failed to load challenge catalog", "path", cfg.Catalog.Path, "error", err)
		}
	}

	normalizer, err := challenge.NewNormalizer(catalog.Aliases())
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to build challenge aliases: %w", err)
	}

	ps := progress.NewStore(backend, progress.WithNormalizer(normalizer.Normalize))
	lb := leaderboard.NewStore(backend, cfg.Leaderboard.Size)
	bus := events.NewBus()

	return &app{
		backend:     backend,
		catalog:     catalog,
		normalizer:  normalizer,
		progress:    ps,
		leaderboard: lb,
		bus:         bus,
		coordinator: completion.NewCoordinator(normalizer, ps, lb, bus),
		payloads:    payload.NewAccessor(ps, backend, payload.WithHistoryLimit(cfg.Payload.TranslationHistoryLimit)),
	}, nil
}

func (a *app) Close() {
	a.bus.Close()
	if err := a.backend.Close(); err != nil {
		slog.Error("storage close error", "error", err)
	}
}

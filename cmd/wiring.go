package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lifecycle-cli/internal/research"
	"github.com/sells-group/lifecycle-cli/internal/scrape"
	"github.com/sells-group/lifecycle-cli/internal/store"
	"github.com/sells-group/lifecycle-cli/pkg/brave"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "lifecycle.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnricher wires the full research pipeline against the given store.
func initEnricher(st store.Store) *research.Enricher {
	searchClient := brave.NewClient(cfg.Brave.Key, brave.WithBaseURL(cfg.Brave.BaseURL))
	fetcher := scrape.NewFetcher().WithTTL(time.Duration(cfg.Scrape.PageTTLHours) * time.Hour)

	orch := research.NewOrchestrator(searchClient, fetcher, research.OrchestratorConfig{
		BatchSize:       cfg.Research.BatchSize,
		PerQueryTimeout: cfg.Research.QueryTimeout(),
		BatchInterval:   cfg.Research.BatchInterval(),
		ResultCap:       cfg.Research.ResultCap,
	})

	return research.NewEnricher(research.NewCache(st), orch)
}

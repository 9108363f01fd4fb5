package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/teacheval/internal/api"
	"github.com/soaringjerry/teacheval/internal/config"
	dbstore "github.com/soaringjerry/teacheval/internal/db"
	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/services"
	"github.com/soaringjerry/teacheval/internal/sheets"
	"github.com/soaringjerry/teacheval/internal/shortener"
)

// app is what the commands operate on.
type app struct {
	results *services.ResultsService
	links   *services.LinkService
	close   func()
}

type appFactory func() (*app, error)

func openApp() (*app, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	logger := logging.NewStdLogger(log.Default(), cfg.Debug)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	categories := models.EvaluationForm()
	if cfg.FormPath != "" {
		if categories, err = models.LoadForm(cfg.FormPath); err != nil {
			return nil, err
		}
	}

	closers := []func(){}
	var store api.Store = api.NewMemoryStore()
	if cfg.SQLitePath != "" {
		sqliteDB, err := dbstore.Open(cfg.SQLitePath, cfg.MigrationsDir)
		if err != nil {
			return nil, err
		}
		if store, err = dbstore.NewStore(sqliteDB); err != nil {
			_ = sqliteDB.Close()
			return nil, err
		}
		closers = append(closers, func() { _ = sqliteDB.Close() })
	}

	var flags services.LinkFlagStore = store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		flags = dbstore.NewRedisLinkFlags(rdb, dbstore.DefaultLinksKey)
		closers = append(closers, func() { _ = rdb.Close() })
	}

	sheet := sheets.NewClient(cfg.SheetsURL, cfg.SheetsTimeout, loc, logger)
	var short services.URLShortener
	if cfg.ShortenerURL != "" {
		short = shortener.NewIsGd(cfg.ShortenerURL, cfg.SheetsTimeout)
	}
	results := services.NewResultsService(sheet, store, flags, categories, loc, logger)
	results.SetCacheTTL(cfg.CacheTTL)
	return &app{
		results: results,
		links: services.NewLinkService(flags, short, services.LinkConfig{
			BaseURL:   cfg.PublicBaseURL,
			QRBaseURL: cfg.QRBaseURL,
			QRSize:    cfg.QRSize,
		}, logger),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

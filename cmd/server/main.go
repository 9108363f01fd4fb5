package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/teacheval/internal/api"
	"github.com/soaringjerry/teacheval/internal/config"
	dbstore "github.com/soaringjerry/teacheval/internal/db"
	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/services"
	"github.com/soaringjerry/teacheval/internal/sheets"
	"github.com/soaringjerry/teacheval/internal/shortener"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger := newLogger(cfg)
	if rl, ok := logger.(*logging.RollbarLogger); ok {
		defer rl.Close()
	}
	if cfg.JWTSecret == "" && cfg.Env != "dev" {
		logger.Warn("EVAL_JWT_SECRET not set, using the development secret")
	}

	loc, _ := cfg.Location()
	categories := models.EvaluationForm()
	if cfg.FormPath != "" {
		if categories, err = models.LoadForm(cfg.FormPath); err != nil {
			log.Fatalf("load form: %v", err)
		}
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	var flags services.LinkFlagStore = store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		flags = dbstore.NewRedisLinkFlags(rdb, dbstore.DefaultLinksKey)
		logger.Info("public link allow-list in redis", logging.Fields{"addr": cfg.RedisAddr})
	}

	sheet := sheets.NewClient(cfg.SheetsURL, cfg.SheetsTimeout, loc, logger)
	var short services.URLShortener
	if cfg.ShortenerURL != "" {
		short = shortener.NewIsGd(cfg.ShortenerURL, cfg.SheetsTimeout)
	}

	tokens := middleware.NewTokens(cfg.JWTSecret)
	auth, err := api.NewAuthService(tokens, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminSessionTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	results := services.NewResultsService(sheet, store, flags, categories, loc, logger)
	results.SetCacheTTL(cfg.CacheTTL)

	rt := api.NewRouter(api.Deps{
		Submissions: services.NewSubmissionService(sheet, store, categories, loc, logger),
		Results:     results,
		Links: services.NewLinkService(flags, short, services.LinkConfig{
			BaseURL:   cfg.PublicBaseURL,
			QRBaseURL: cfg.QRBaseURL,
			QRSize:    cfg.QRSize,
		}, logger),
		Auth:        auth,
		Directory:   sheet,
		Flags:       flags,
		Tokens:      tokens,
		Categories:  categories,
		Log:         logger,
		Commit:      cfg.Commit,
		BuildTime:   cfg.BuildTime,
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		logger.Info("teacher evaluation server listening", logging.Fields{"addr": cfg.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", err)
			stop()
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", err)
	}
}

func newLogger(cfg *config.Config) logging.Logger {
	local := logging.NewStdLogger(log.Default(), cfg.Debug)
	if cfg.RollbarToken == "" {
		return local
	}
	return logging.NewRollbarLogger(local, logging.RollbarOptions{
		Token:   cfg.RollbarToken,
		Env:     cfg.Env,
		Version: cfg.Commit,
	})
}

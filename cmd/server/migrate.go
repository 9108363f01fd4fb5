package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/soaringjerry/teacheval/internal/api"
	"github.com/soaringjerry/teacheval/internal/config"
	dbstore "github.com/soaringjerry/teacheval/internal/db"
	"github.com/soaringjerry/teacheval/internal/logging"
)

// openStore opens the SQLite store, importing a legacy browser-storage
// snapshot on first start. An empty sqlite path keeps state in memory.
func openStore(cfg *config.Config, log logging.Logger) (api.Store, func(), error) {
	if cfg.SQLitePath == "" {
		log.Warn("EVAL_SQLITE_PATH empty, state is kept in memory only")
		return api.NewMemoryStore(), func() {}, nil
	}
	if err := MigrateIfNeeded(cfg.LegacySnapshotPath, cfg.SQLitePath, cfg.MigrationsDir, log); err != nil {
		return nil, nil, err
	}
	sqliteDB, err := dbstore.Open(cfg.SQLitePath, cfg.MigrationsDir)
	if err != nil {
		return nil, nil, err
	}
	store, err := dbstore.NewStore(sqliteDB)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, nil, err
	}
	closer := func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Warn("close sqlite db", cerr)
		}
	}
	return store, closer, nil
}

// MigrateIfNeeded imports the legacy snapshot into a fresh SQLite file. It
// does nothing once the SQLite file exists or when there is no snapshot.
func MigrateIfNeeded(snapshotPath, sqlitePath, migrationsDir string, log logging.Logger) error {
	if sqlitePath == "" {
		return errors.New("sqlite path is required")
	}
	if _, err := os.Stat(sqlitePath); err == nil {
		return nil // already migrated
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check sqlite file: %w", err)
	}

	snap, err := api.LoadLegacySnapshot(snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load legacy snapshot: %w", err)
	}

	log.Info("first run, importing legacy snapshot", logging.Fields{
		"path":        snapshotPath,
		"submissions": len(snap.Submissions),
		"links":       len(snap.PublicLinks),
	})

	sqliteDB, err := dbstore.Open(sqlitePath, migrationsDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Warn("close sqlite db", cerr)
		}
	}()

	dst, err := dbstore.NewSQLiteStore(sqliteDB)
	if err != nil {
		return fmt.Errorf("init sqlite store: %w", err)
	}
	if err := snap.CopyTo(context.Background(), dst); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	log.Info("legacy import completed")
	return nil
}

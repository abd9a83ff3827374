package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/runway-redeclaration/internal/api"
	"github.com/yegors/runway-redeclaration/internal/config"
	"github.com/yegors/runway-redeclaration/internal/session"
	"github.com/yegors/runway-redeclaration/internal/storage/sqlite"
	"github.com/yegors/runway-redeclaration/internal/storage/xmlstore"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("Exiting with error", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	var store session.Store
	var journal *sqlite.RedeclarationStorage

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer closeDB(db, log)

		airports, err := sqlite.NewAirportStorage(db, log)
		if err != nil {
			return err
		}
		journal, err = sqlite.NewRedeclarationStorage(db, log)
		if err != nil {
			return err
		}
		store = airports
	default:
		xs, err := xmlstore.NewStore(cfg.Storage.Directory, log)
		if err != nil {
			return err
		}
		log.Info("Using XML storage", logger.String("dir", xs.Dir()))
		store = xs
	}

	// Keep the interface nil rather than holding a typed nil pointer
	var sessionJournal session.Journal
	if journal != nil {
		sessionJournal = journal
	}

	service := session.NewService(store, sessionJournal, cfg.Redeclaration.Constants(), log)
	if err := service.Load(); err != nil {
		return err
	}

	router := api.NewRouter(service, journal, cfg, log)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("Starting HTTP server",
			logger.String("addr", cfg.Server.Addr),
			logger.String("storage", cfg.Storage.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server did not shut down cleanly", logger.Error(err))
		}
		// Persist every airport with its published distances before exiting
		if err := service.Shutdown(); err != nil {
			return fmt.Errorf("failed to save airports on shutdown: %w", err)
		}
		return nil
	})

	return eg.Wait()
}

func closeDB(db *sql.DB, log *logger.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", logger.Error(err))
	}
}

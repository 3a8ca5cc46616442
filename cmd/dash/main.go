package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/tokenfolio/dash/internal/api"
	"github.com/tokenfolio/dash/internal/coingecko"
	"github.com/tokenfolio/dash/internal/config"
	"github.com/tokenfolio/dash/internal/dashboard"
	"github.com/tokenfolio/dash/internal/database"
	"github.com/tokenfolio/dash/internal/export"
	"github.com/tokenfolio/dash/internal/search"
	"github.com/tokenfolio/dash/internal/watchlist"
	"github.com/tokenfolio/dash/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "dash",
		Usage: "crypto watchlist dashboard with derived portfolio views",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API with background market-data refresh",
				Action: runServe,
			},
			{
				Name:   "refresh",
				Usage:  "fetch market data once and print a summary",
				Action: runRefresh,
			},
			{
				Name:   "export",
				Usage:  "refresh once and write the dashboard report",
				Action: runExport,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// application bundles the wired services shared by all commands.
type application struct {
	cfg    config.Config
	pool   *pgxpool.Pool // nil with file storage
	store  *watchlist.Store
	gecko  *coingecko.Client
	dash   *dashboard.Service
	finder *search.Workflow
}

func (a *application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// bootstrap loads configuration and wires storage, the market-data client
// and the dashboard. With an empty DATABASE_URL the watchlist persists to
// a local JSON file instead of Postgres.
func bootstrap(ctx context.Context) (*application, error) {
	cfg := config.Load()

	var repo watchlist.Repository
	var pool *pgxpool.Pool

	if cfg.DatabaseURL != "" {
		var err error
		pool, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.Migrate(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		repo = watchlist.NewPgRepository(pool)
	} else {
		slog.Info("DATABASE_URL not set, persisting watchlist to file", "path", cfg.WatchlistFile)
		repo = watchlist.NewFileRepository(cfg.WatchlistFile)
	}

	store, err := watchlist.NewStore(ctx, repo)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}

	gecko := coingecko.NewClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey)
	dash := dashboard.NewService(store, gecko)
	finder := search.NewWorkflow(gecko, store, cfg.SearchDebounce)

	return &application{cfg: cfg, pool: pool, store: store, gecko: gecko, dash: dash, finder: finder}, nil
}

// reportWriter picks the export destination: Google Sheets when configured,
// otherwise a local XLSX workbook.
func reportWriter(ctx context.Context, cfg config.Config) (export.ReportWriter, string, error) {
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		w, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			return nil, "", err
		}
		return w, "spreadsheet " + cfg.SheetsSpreadsheetID, nil
	}
	return export.NewXLSXWriter(cfg.ExportXLSXPath), cfg.ExportXLSXPath, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	// First run only; a populated watchlist is left alone.
	if err := app.dash.SeedDefaults(ctx); err != nil {
		slog.Warn("seeding default watchlist failed", "error", err)
	}

	go app.dash.Run(ctx)

	var hook worker.AfterRefreshHook
	if app.cfg.SheetsSpreadsheetID != "" && app.cfg.SheetsCredentialsJSON != "" {
		writer, dest, err := reportWriter(ctx, app.cfg)
		if err != nil {
			return fmt.Errorf("configuring export: %w", err)
		}
		slog.Info("exporting dashboard after each refresh", "destination", dest)
		hook = export.NewService(app.dash, writer)
	}

	refreshWorker := worker.NewRefreshWorker(app.dash, app.cfg.RefreshInterval, hook)
	go refreshWorker.Run(ctx)

	handler := api.NewHandler(app.dash, app.store, app.gecko, app.finder)
	srv := api.NewServer(app.cfg.HTTPPort, handler)

	go func() {
		log.Printf("HTTP server listening on :%s", app.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runRefresh(c *cli.Context) error {
	ctx := c.Context

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.dash.Refresh(ctx); err != nil {
		return err
	}

	rows := app.dash.Rows()
	log.Printf("refreshed %d tokens, portfolio total %s USD", len(rows), app.dash.TotalValue().StringFixed(2))
	return nil
}

func runExport(c *cli.Context) error {
	ctx := c.Context

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.dash.Refresh(ctx); err != nil {
		return err
	}

	writer, dest, err := reportWriter(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("configuring export: %w", err)
	}
	if err := export.NewService(app.dash, writer).Export(ctx); err != nil {
		return err
	}

	log.Printf("dashboard exported to %s", dest)
	return nil
}

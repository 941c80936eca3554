// Package app wires configuration into the object store, query engine,
// translator and history store shared by the salesql binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/salesql/salesql/internal/api"
	"github.com/salesql/salesql/internal/auth"
	"github.com/salesql/salesql/internal/config"
	"github.com/salesql/salesql/internal/dataset"
	"github.com/salesql/salesql/internal/history"
	historypostgres "github.com/salesql/salesql/internal/history/postgres"
	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/observability"
	"github.com/salesql/salesql/internal/present"
	"github.com/salesql/salesql/internal/query"
	duckdbengine "github.com/salesql/salesql/internal/query/duckdb"
	sqliteengine "github.com/salesql/salesql/internal/query/sqlite"
	"github.com/salesql/salesql/internal/schema"
	"github.com/salesql/salesql/internal/storage"
	"github.com/salesql/salesql/internal/storage/memory"
	s3store "github.com/salesql/salesql/internal/storage/s3"
)

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Schema     *schema.Descriptor
	Store      storage.ObjectStore
	Source     *dataset.Source
	Translator *nl2sql.Translator
	Executor   *query.Executor
	Presenter  *present.Builder
	History    history.Store

	historyDB *sql.DB
}

// New builds every dependency named by cfg. The caller owns the returned
// App and must Close it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	desc := schema.Sales()

	dialect, err := nl2sql.DialectByName(cfg.Query.Dialect)
	if err != nil {
		return nil, err
	}
	translator, err := nl2sql.New(desc, nl2sql.DefaultBank(),
		nl2sql.WithDialect(dialect),
		nl2sql.WithListLimit(cfg.Query.ListLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("build translator: %w", err)
	}

	store, err := OpenObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg, store, desc)
	if err != nil {
		return nil, err
	}
	source := dataset.NewSource(store, cfg.Dataset.Name)

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Schema:     desc,
		Store:      store,
		Source:     source,
		Translator: translator,
		Executor: &query.Executor{
			Engine:   engine,
			Source:   source,
			RowLimit: cfg.Query.RowLimit,
			Timeout:  cfg.Query.Timeout,
			Observer: observability.QueryMetrics{},
		},
		Presenter: present.NewBuilder(desc, present.Options{MaxCategories: cfg.Present.MaxChartCategories}),
	}

	switch cfg.History.Driver {
	case config.DriverPostgres:
		db, err := historypostgres.Open(ctx, historypostgres.DBConfig{
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.historyDB = db
		a.History = historypostgres.NewRepository(db)
	default:
		a.History = history.NewMemory(cfg.History.MemoryCapacity)
	}
	return a, nil
}

func OpenObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.ObjectStore.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverS3:
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported object store driver %q", cfg.ObjectStore.Driver)
	}
}

func NewEngine(cfg config.Config, store storage.ObjectStore, desc *schema.Descriptor) (query.Engine, error) {
	switch cfg.Query.Engine {
	case config.EngineDuckDB:
		engine := duckdbengine.NewEngine(store)
		engine.TempDir = cfg.Query.TempDir
		return engine, nil
	case config.EngineSQLite:
		return sqliteengine.NewEngine(store, desc), nil
	default:
		return nil, fmt.Errorf("unsupported query engine %q", cfg.Query.Engine)
	}
}

// Publish generates the configured dataset and uploads it.
func (a *App) Publish(ctx context.Context) (dataset.Manifest, error) {
	return dataset.NewPublisher(a.Store, a.Logger, a.Config.Dataset.UploadConcurrency).Publish(ctx, dataset.PublishRequest{
		Dataset: a.Config.Dataset.Name,
		Table:   a.Schema.Table(),
		Seed:    a.Config.Dataset.Seed,
		Year:    a.Config.Dataset.Year,
		Rows:    a.Config.Dataset.Rows,
	})
}

// EnsureDataset publishes the dataset when auto seeding is enabled and no
// manifest exists yet. An existing dataset is left untouched.
func (a *App) EnsureDataset(ctx context.Context) error {
	manifest, err := a.Source.Manifest(ctx)
	switch {
	case err == nil:
		a.Logger.InfoContext(ctx, "dataset available",
			slog.String("dataset", manifest.Dataset),
			slog.Int("rows", manifest.Rows),
			slog.Int("partitions", len(manifest.Partitions)),
		)
		return nil
	case !errors.Is(err, dataset.ErrNoManifest):
		return fmt.Errorf("load dataset manifest: %w", err)
	case !a.Config.Dataset.AutoSeed:
		a.Logger.WarnContext(ctx, "no dataset published and auto seed is disabled", slog.String("dataset", a.Config.Dataset.Name))
		return nil
	}
	_, err = a.Publish(ctx)
	return err
}

func (a *App) Handler() (http.Handler, error) {
	readiness := []api.ReadinessCheck{api.CheckObjectStoreConfig(a.Config), api.CheckDataset(a.Source)}
	if repo, ok := a.History.(*historypostgres.Repository); ok {
		readiness = append(readiness, repo.HealthCheck)
	}
	deps := api.Dependencies{
		Logger:            a.Logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
		Translator:        a.Translator,
		Queries:           a.Executor,
		Presenter:         a.Presenter,
		History:           a.History,
		Dataset:           a.Source,
	}
	if a.Config.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(a.Config.Auth.StaticKeys)
		if err != nil {
			return nil, fmt.Errorf("parse static auth keys: %w", err)
		}
		if validator.Len() == 0 {
			return nil, errors.New("auth is required but no static keys are configured")
		}
		deps.AuthMiddleware = auth.Middleware(a.Logger, validator)
	}
	return api.NewHandler(a.Config, deps), nil
}

func (a *App) Close() error {
	if a.historyDB != nil {
		return a.historyDB.Close()
	}
	return nil
}

package core

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/tokscribe/tokscribe/internal/config"
	"github.com/tokscribe/tokscribe/internal/db"
	"github.com/tokscribe/tokscribe/internal/ingest"
	"github.com/tokscribe/tokscribe/internal/ingest/providers"
	"github.com/tokscribe/tokscribe/internal/ingest/providers/mocktok"
	"github.com/tokscribe/tokscribe/internal/ingest/providers/tokcdn"
	"github.com/tokscribe/tokscribe/internal/jobs"
	"github.com/tokscribe/tokscribe/internal/pipeline"
	"github.com/tokscribe/tokscribe/internal/pipeline/simulated"
	"github.com/tokscribe/tokscribe/internal/store"
	"github.com/tokscribe/tokscribe/migrations"
)

// App bundles the core components shared between the server and the
// maintenance jobs.
type App struct {
	config     *config.Config
	db         *sql.DB
	store      *store.Store
	registry   *ingest.Registry
	jobManager *jobs.JobManager
}

// New sets up a new App instance: configuration, database and migrations,
// metadata provider, job registry and maintenance manager.
//
// The pipeline runner defaults to the simulated one; deployments that run
// the real transcription pipeline embed this module and wire their own
// pipeline.Runner through NewApp.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, migrations.FS); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	providers.Register(mocktok.New())
	providers.Register(tokcdn.New())

	providerID := cfg.Ingest.Provider
	if cfg.Ingest.DevMode {
		providerID = "mocktok"
	}
	provider, ok := providers.Get(providerID)
	if !ok {
		database.Close()
		return nil, fmt.Errorf("unknown metadata provider %q", providerID)
	}

	var runner pipeline.Runner
	if cfg.Ingest.DevMode {
		runner = simulated.New(200 * time.Millisecond)
	} else {
		runner = simulated.New(2 * time.Second)
	}

	log.Println("Core application setup complete.")
	return NewApp(cfg, database, provider, runner), nil
}

// NewApp assembles an App from already-built components. Tests and embedding
// binaries use this to swap in their own provider and pipeline runner.
func NewApp(cfg *config.Config, database *sql.DB, provider providers.Provider, runner pipeline.Runner) *App {
	st := store.New(database)
	manager := jobs.NewManager()
	jobs.RegisterJobs(manager)
	return &App{
		config:     cfg,
		db:         database,
		store:      st,
		registry:   ingest.NewRegistry(provider, runner, cfg.Ingest.Workers, st),
		jobManager: manager,
	}
}

func (a *App) Config() *config.Config       { return a.config }
func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) Store() *store.Store          { return a.store }
func (a *App) Registry() *ingest.Registry   { return a.registry }
func (a *App) JobManager() *jobs.JobManager { return a.jobManager }

// Close gracefully closes the application's resources.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

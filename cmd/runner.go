package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/metrics"
	"github.com/desertthunder/coursex/internal/ratings"
	"github.com/desertthunder/coursex/internal/repositories"
	"github.com/desertthunder/coursex/internal/services"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	metrics    *metrics.Manager
	prompter   Prompter

	api       *services.APIClient
	auth      *services.AuthService
	ratingAPI *services.RatingService
	catalog   *services.CatalogService

	db       *sql.DB
	tokens   *repositories.TokenRepository
	store    session.TokenStore
	session  *session.Manager
	ratings  *ratings.Engine
	exporter *tasks.ExportEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Metrics    *metrics.Manager
	Prompter   Prompter
	Store      session.TokenStore // overrides the database-backed token store
}

// NewRunner creates a new Runner with the provided configuration.
//
// Nothing touches the network or the database until a command calls [Runner.start].
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewManager()
	}
	if opts.Prompter == nil {
		opts.Prompter = huhPrompter{}
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    opts.Metrics,
		prompter:   opts.Prompter,
		store:      opts.Store,
	}
	r.api = services.NewAPIClient(services.ClientOpts{
		BaseURL:           opts.Config.API.BaseURL,
		HTTPClient:        opts.HTTPClient,
		Timeout:           opts.Config.API.Timeout(),
		RequestsPerSecond: opts.Config.API.RequestsPerSecond,
		Observer:          opts.Metrics,
	})
	r.auth = services.NewAuthService(r.api)
	r.catalog = services.NewCatalogService(r.api)
	return r
}

// SetLogger replaces the logger used by the runner and the engines it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// start builds the session and rating engines and resolves the stored session.
//
// Safe to call from every command; only the first call does any work.
func (r *Runner) start(ctx context.Context) error {
	if r.session != nil {
		return nil
	}

	if r.store == nil {
		store, err := r.openStore()
		if err != nil {
			return err
		}
		r.store = store
	}

	r.session = session.NewManager(r.auth, r.store, session.Options{
		InitTimeout: r.config.Session.InitTimeout(),
		Logger:      r.logger,
		Observer:    r.metrics,
	})
	r.ratingAPI = services.NewRatingService(r.api, r.session)
	r.ratings = ratings.NewEngine(r.ratingAPI, r.session, ratings.Options{
		SuccessReset: r.config.Ratings.SuccessReset(),
		Logger:       r.logger,
		Observer:     r.metrics,
	})
	r.exporter = tasks.NewExportEngine(r.catalog, r.ratingAPI, r.session, r.logger)

	snap := r.session.Init(ctx)
	r.logger.Debug("session resolved", "phase", snap.Phase)
	return nil
}

// openStore selects the token store: in memory for ephemeral sessions, SQLite otherwise.
func (r *Runner) openStore() (session.TokenStore, error) {
	if r.config.Session.Ephemeral {
		return session.NewMemoryStore(), nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	r.db = db
	r.tokens = repositories.NewTokenRepository(db, r.api.BaseURL(), r.logger)
	return r.tokens, nil
}

// Close drops any still-active rating views, releases the database and writes the
// metrics textfile when one is configured.
func (r *Runner) Close() error {
	if r.ratings != nil {
		for _, id := range r.ratings.Active() {
			r.ratings.Deactivate(id)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}

	if path := r.config.Metrics.Textfile; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			return err
		}
		r.logger.Debug("metrics written", "path", path)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, coursesCommand, ratingsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

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
	"github.com/desertthunder/reelx/internal/auth"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/tasks"
	"github.com/desertthunder/reelx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Session dependencies are built by [Runner.connect] on first use unless they were provided through [RunnerOpts].
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	jar     *session.PersistentJar
	store   *auth.Store
	guard   *session.Guard
	movies  *services.MovieService
	account *services.AccountService
	api     *services.APIService
	cache   *repositories.MovieRepository
	engine  *tasks.MovieEngine

	trace     bool
	stopTrace func()
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	Jar     *session.PersistentJar
	Store   *auth.Store
	Guard   *session.Guard
	Movies  *services.MovieService
	Account *services.AccountService
	API     *services.APIService
	Cache   *repositories.MovieRepository
}

// NewRunner creates a new Runner with the provided configuration
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

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		jar:        opts.Jar,
		store:      opts.Store,
		guard:      opts.Guard,
		movies:     opts.Movies,
		account:    opts.Account,
		api:        opts.API,
		cache:      opts.Cache,
	}
	if r.guard != nil {
		r.engine = r.newEngine()
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moviesCommand, streamCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the configuration named by --config and applies the global flags.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	r.trace = cmd.Bool("trace")

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.configPath == "" {
		return ctx, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("config loaded", "path", r.configPath, "api", config.API.BaseURL)
	return ctx, nil
}

// connect opens the database and wires the session stack:
// repositories, cookie jar, auth store, HTTP transport, guard and services.
func (r *Runner) connect(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if r.guard != nil {
		return ctx, nil
	}

	cfg := r.config
	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return ctx, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db

	jar, err := session.NewPersistentJar(cfg.API.BaseURL, repositories.NewCookieRepository(db), r.logger)
	if err != nil {
		return ctx, err
	}
	r.jar = jar

	r.store = auth.NewStore(auth.StoreOpts{
		Persister: repositories.NewIdentityRepository(db),
		Cookies:   jar,
		Logger:    r.logger,
	})
	if err := r.store.Load(); err != nil {
		r.logger.Warn("failed to load stored identity", "error", err)
	}

	transport := session.NewHTTPTransport(session.HTTPTransportOpts{
		BaseURL:   cfg.API.BaseURL,
		Jar:       jar,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Logger:    r.logger,
	})

	var events chan session.Event
	if r.trace {
		events = make(chan session.Event, 64)
		r.stopTrace = r.traceEvents(events)
	}

	r.guard = session.NewGuard(session.GuardOpts{
		Transport:                  transport,
		Store:                      r.store,
		Logger:                     r.logger,
		Events:                     events,
		RefreshPath:                cfg.API.RefreshPath,
		RefreshTimeout:             cfg.Session.RefreshTimeout,
		KeepIdentityOnRefreshError: !cfg.Session.ClearOnRefreshError,
	})

	r.movies = services.NewMovieService(services.MovieServiceOpts{
		Public:   transport,
		Private:  r.guard,
		Identity: r.store,
		Logger:   r.logger,
	})
	r.account = services.NewAccountService(services.AccountServiceOpts{
		Public:  transport,
		Session: r.guard,
		Store:   r.store,
		Logger:  r.logger,
	})
	r.api = services.NewAPIService(r.guard)
	r.cache = repositories.NewMovieRepository(db)
	r.engine = r.newEngine()

	r.logger.Debug("session ready", "api", transport.BaseURL(), "identity", r.identityName())
	return ctx, nil
}

func (r *Runner) newEngine() *tasks.MovieEngine {
	opts := tasks.MovieEngineOpts{Logger: r.logger}
	if r.movies != nil {
		opts.Movies = r.movies
	}
	if r.api != nil {
		opts.API = r.api
	}
	if r.cache != nil {
		opts.Cache = repositories.NewMovieCacheAdapter(r.cache)
	}
	return tasks.NewMovieEngine(opts)
}

// traceEvents prints guard events until the returned stop function is called.
func (r *Runner) traceEvents(events <-chan session.Event) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case e := <-events:
				r.logger.Print(ui.Session(e))
			case <-done:
				// events emitted before stop are still buffered
				for {
					select {
					case e := <-events:
						r.logger.Print(ui.Session(e))
					default:
						return
					}
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// close releases what [Runner.connect] opened.
func (r *Runner) close(ctx context.Context, _ *cli.Command) error {
	if r.stopTrace != nil {
		r.stopTrace()
		r.stopTrace = nil
	}
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

func (r *Runner) identityName() string {
	if r.store == nil {
		return ""
	}
	if identity, ok := r.store.Identity(); ok {
		return identity.Email
	}
	return ""
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
	r.writePlain("%v\n", ui.Title("%s", title))
	r.writePlain("═══════════════════════════════════════\n")
}

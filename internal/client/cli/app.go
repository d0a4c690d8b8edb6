package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/gophblog/internal/client/cache"
	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/config"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/services"
	"github.com/dmitrijs2005/gophblog/internal/client/session"
	"github.com/dmitrijs2005/gophblog/internal/client/storage"
	"github.com/dmitrijs2005/gophblog/internal/filex"
	"github.com/dmitrijs2005/gophblog/internal/logging"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	session  *session.Store
	auth     services.AuthService
	query    services.PostQueryService
	mutation services.PostMutationService
	slot     *services.ListSlot
	cache    *cache.PostCache

	// filters of the list currently on screen; next/prev page through it
	filters models.Filters

	reader *bufio.Reader

	// out is written by the REPL and by debounced searches
	outMu sync.Mutex
	out   io.Writer
}

// NewApp opens the local database and wires the services against the
// Blog API at cfg.APIBaseURL.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		logger.Error(ctx, "error preparing database directory", "path", cfg.DatabasePath, "error", err)
		return nil, err
	}

	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", cfg.DatabasePath, "error", err)
		return nil, err
	}

	store := session.NewStore(db, logger)

	c := cache.New(cache.WithTTL(cfg.CacheTTL))

	api, err := client.NewHTTPClient(cfg.APIBaseURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		client.WithLogger(logger),
		client.OnUnauthorized(unauthorizedHook(store, c, logger)),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := newApp(cfg, logger, store, api, c, bufio.NewReader(os.Stdin), os.Stdout)
	a.db = db
	return a, nil
}

// unauthorizedHook ends the session on a 401 the same way logout does.
func unauthorizedHook(store *session.Store, c *cache.PostCache, logger logging.Logger) func(ctx context.Context) {
	return func(ctx context.Context) {
		if err := services.EndSession(ctx, store, c); err != nil {
			logger.Warn(ctx, "failed to clear session", "error", err)
		}
	}
}

func newApp(cfg *config.Config, logger logging.Logger, store *session.Store, api client.Client, c *cache.PostCache, reader *bufio.Reader, out io.Writer) *App {
	a := &App{
		config:   cfg,
		logger:   logger,
		session:  store,
		auth:     services.NewAuthService(api, store, c, logger),
		query:    services.NewPostQueryService(api, c, store, logger),
		mutation: services.NewPostMutationService(api, c, store, logger),
		cache:    c,
		filters:  models.Filters{Limit: cfg.PageSize},
		reader:   reader,
		out:      out,
	}
	a.slot = services.NewListSlot(a.query, a.renderList)
	return a
}

// Run restores the previous session and serves the REPL until exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if _, err := a.auth.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "could not restore session", "error", err)
	}

	a.printf("Welcome to gophblog (type 'help' for commands)\n")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.Current().IsAuthenticated()
}

func (a *App) status() string {
	snap := a.auth.Current()
	if !snap.IsAuthenticated() {
		return "(guest)"
	}
	if snap.User != nil {
		return fmt.Sprintf("(%s)", snap.User.Email)
	}
	return "(signed in)"
}

// Info prints the signed-in user and what the post cache holds.
func (a *App) Info(ctx context.Context) error {
	a.printf("session: %s\n", a.status())
	lists, posts := a.cache.Len()
	a.printf("cache: %d lists, %d posts, ttl %s\n", lists, posts, a.cache.TTL())
	return nil
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

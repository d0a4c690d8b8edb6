package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/apitest"
	"github.com/dmitrijs2005/gophblog/internal/client/cache"
	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/session"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv      *apitest.Server
	token    string
	session  *session.Store
	cache    *cache.PostCache
	api      *client.HTTPClient
	query    PostQueryService
	mutation PostMutationService
	auth     AuthService
}

type harnessOpt func(*harnessConfig)

type harnessConfig struct {
	signedIn bool
	token    string
	timeout  time.Duration
}

func signedOut() harnessOpt { return func(c *harnessConfig) { c.signedIn = false } }

func withToken(token string) harnessOpt { return func(c *harnessConfig) { c.token = token } }

func withTimeout(d time.Duration) harnessOpt { return func(c *harnessConfig) { c.timeout = d } }

// newHarness wires the services to a fresh fake API the way the CLI does.
func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()

	cfg := harnessConfig{signedIn: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := apitest.New(t)
	token := srv.WithDemoUser()
	if cfg.token != "" {
		token = cfg.token
	}

	store := session.NewStore(nil, nil)
	if cfg.signedIn {
		user := apitest.DemoUser
		require.NoError(t, store.SetCredentials(context.Background(), token, &user))
	}

	c := cache.New()
	clientOpts := []client.Option{
		client.OnUnauthorized(func(ctx context.Context) { _ = EndSession(ctx, store, c) }),
	}
	if cfg.timeout > 0 {
		clientOpts = append(clientOpts, client.WithTimeout(cfg.timeout))
	}
	api, err := client.NewHTTPClient(srv.URL, store, clientOpts...)
	require.NoError(t, err)

	return &harness{
		srv:      srv,
		token:    token,
		session:  store,
		cache:    c,
		api:      api,
		query:    NewPostQueryService(api, c, store, nil),
		mutation: NewPostMutationService(api, c, store, nil),
		auth:     NewAuthService(api, store, c, nil),
	}
}

func postIDs(ps []models.Post) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func validCreateDTO() models.CreatePostDTO {
	return models.CreatePostDTO{
		Title:    "Caching in Go",
		Content:  strings.Repeat("Generation counters keep caches honest. ", 3),
		Category: "Technology",
		Tags:     []string{"go", "cache"},
	}
}

// waitCalls blocks until route has been hit n times.
func waitCalls(t *testing.T, srv *apitest.Server, route string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return srv.Calls(route) >= n }, 2*time.Second, 5*time.Millisecond)
}

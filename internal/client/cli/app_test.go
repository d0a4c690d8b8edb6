package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/apitest"
	"github.com/dmitrijs2005/gophblog/internal/client/cache"
	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/config"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/session"
	"github.com/dmitrijs2005/gophblog/internal/client/storage"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	*App
	srv *apitest.Server
	out *bytes.Buffer
}

func (ta *testApp) output() string {
	ta.outMu.Lock()
	defer ta.outMu.Unlock()
	return ta.out.String()
}

// newTestApp wires an App to a fake API. input feeds every prompt.
func newTestApp(t *testing.T, input string, signedIn bool) *testApp {
	t.Helper()

	srv := apitest.New(t)
	token := srv.WithDemoUser()

	store := session.NewStore(nil, nil)
	if signedIn {
		user := apitest.DemoUser
		require.NoError(t, store.SetCredentials(context.Background(), token, &user))
	}

	c := cache.New()
	api, err := client.NewHTTPClient(srv.URL, store,
		client.OnUnauthorized(unauthorizedHook(store, c, logging.NewNop())),
	)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SearchDebounce = 20 * time.Millisecond

	out := &bytes.Buffer{}
	a := newApp(cfg, logging.NewNop(), store, api, c, bufio.NewReader(strings.NewReader(input)), out)
	return &testApp{App: a, srv: srv, out: out}
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

func TestParseFilters(t *testing.T) {
	base := models.Filters{Limit: 9}

	f, err := parseFilters([]string{"category=Technology", "tag=go", "q=chan", "author=1",
		"published=true", "featured=false", "page=2", "limit=5", "sort=views", "order=asc"}, base)
	require.NoError(t, err)
	assert.Equal(t, models.Filters{
		Category:  "Technology",
		Tag:       "go",
		Search:    "chan",
		AuthorID:  "1",
		Published: models.Bool(true),
		Featured:  models.Bool(false),
		Page:      2,
		Limit:     5,
		SortBy:    "views",
		SortOrder: "asc",
	}, f)

	f, err = parseFilters(nil, base)
	require.NoError(t, err)
	assert.Equal(t, base, f)

	for _, bad := range [][]string{{"color=red"}, {"page=two"}, {"published=maybe"}, {"category"}, {"tag="}} {
		_, err := parseFilters(bad, base)
		assert.ErrorIs(t, err, errUsage, bad)
	}
}

func TestList_PagesThroughResults(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.srv.SeedPosts(apitest.NewPosts(1, 20, "Technology")...)
	ctx := context.Background()

	require.NoError(t, ta.List(ctx, nil))
	assert.Contains(t, ta.output(), "page 1/3 (total 20)")
	assert.Contains(t, ta.output(), "[1] Technology post 1  (Technology)")

	require.NoError(t, ta.NextPage(ctx))
	assert.Contains(t, ta.output(), "page 2/3 (total 20)")
	assert.Contains(t, ta.output(), "[10] Technology post 10")

	require.NoError(t, ta.PrevPage(ctx))
	require.NoError(t, ta.PrevPage(ctx))
	assert.Contains(t, ta.output(), "Already on the first page.")

	assert.Equal(t, 2, ta.srv.Calls(apitest.RouteListPosts), "revisited page is served from cache")
}

func TestList_LastPage(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.srv.SeedPosts(apitest.NewPosts(1, 3, "Travel")...)
	ctx := context.Background()

	require.NoError(t, ta.List(ctx, []string{"category=Travel"}))
	require.NoError(t, ta.NextPage(ctx))
	assert.Contains(t, ta.output(), "Already on the last page.")
}

func TestList_SignedOut(t *testing.T) {
	ta := newTestApp(t, "", false)

	require.NoError(t, ta.List(context.Background(), nil))
	assert.Contains(t, ta.output(), "Sign in to see posts.")
	assert.Zero(t, ta.srv.TotalCalls())
}

func TestList_RejectedFilters(t *testing.T) {
	ta := newTestApp(t, "", true)
	ctx := context.Background()

	err := ta.List(ctx, []string{"color=red"})
	require.ErrorIs(t, err, errUsage)

	err = ta.List(ctx, []string{"sort=title"})
	require.Error(t, err)
	assert.Contains(t, ta.output(), "Please fix the following:")
	assert.Zero(t, ta.srv.TotalCalls())
}

func TestSearch_WithArguments(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.srv.SeedPosts(
		apitest.NewPost("1", "Golang tips", "Technology"),
		apitest.NewPost("2", "Travel notes", "Travel"),
	)

	require.NoError(t, ta.Search(context.Background(), []string{"golang", "tips"}))
	assert.Contains(t, ta.output(), "Golang tips")
	assert.NotContains(t, ta.output(), "Travel notes")
	assert.Equal(t, "golang tips", ta.filters.Search)
}

func TestSearch_InteractiveDebouncesTyping(t *testing.T) {
	ta := newTestApp(t, "g\ngo\ngolang\n\n", true)
	ta.srv.SeedPosts(
		apitest.NewPost("1", "Golang tips", "Technology"),
		apitest.NewPost("2", "Travel notes", "Travel"),
	)

	require.NoError(t, ta.Search(context.Background(), nil))

	assert.Equal(t, 1, ta.srv.Calls(apitest.RouteListPosts), "only the settled query is sent")
	assert.Contains(t, ta.output(), "Golang tips")
	assert.NotContains(t, ta.output(), "Travel notes")
	assert.Equal(t, "golang", ta.filters.Search)
}

func TestSearch_InteractiveEmpty(t *testing.T) {
	ta := newTestApp(t, "\n", true)

	require.NoError(t, ta.Search(context.Background(), nil))
	assert.Zero(t, ta.srv.TotalCalls())
}

func TestShow(t *testing.T) {
	ta := newTestApp(t, "", true)
	post := apitest.NewPost("7", "Channels in depth", "Technology", "go", "concurrency")
	ta.srv.SeedPosts(post)
	ctx := context.Background()

	require.NoError(t, ta.Show(ctx, []string{"7"}))
	out := ta.output()
	assert.Contains(t, out, "Channels in depth\nby Demo User in Technology")
	assert.Contains(t, out, "tags: go, concurrency")
	assert.Contains(t, out, post.Content)

	err := ta.Show(ctx, []string{"404"})
	require.ErrorIs(t, err, client.ErrNotFound)
	assert.Contains(t, ta.output(), "Not found.")

	require.ErrorIs(t, ta.Show(ctx, nil), errUsage)
}

func TestCategories(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.srv.SeedPosts(apitest.NewPosts(1, 2, "Technology")...)
	ta.srv.SeedCategories(models.Category{ID: "1", Name: "Technology"}, models.Category{ID: "2", Name: "Travel"})

	require.NoError(t, ta.Categories(context.Background()))
	assert.Contains(t, ta.output(), "Technology (2)\nTravel (0)\n")
}

func TestCreate_RefreshesList(t *testing.T) {
	content := strings.Repeat("Writing tests for a command line blog client. ", 2)
	input := strings.Join([]string{
		"My first post",
		"Technology",
		"go, testing",
		content,
		"",
		"y",
	}, "\n") + "\n"

	ta := newTestApp(t, input, true)
	ctx := context.Background()

	require.NoError(t, ta.List(ctx, nil))
	assert.Contains(t, ta.output(), "No posts found.")

	require.NoError(t, ta.Create(ctx))
	assert.Contains(t, ta.output(), "Created post 1: My first post")

	created, ok := ta.srv.Post("1")
	require.True(t, ok)
	assert.Equal(t, []string{"go", "testing"}, created.Tags)
	assert.True(t, created.Published)

	require.NoError(t, ta.List(ctx, nil))
	assert.Contains(t, ta.output(), "[1] My first post  (Technology) #go #testing")
	assert.Equal(t, 2, ta.srv.Calls(apitest.RouteListPosts))
}

func TestCreate_ValidationFailure(t *testing.T) {
	input := "abc\nTechnology\n\nshort\n\nn\n"
	ta := newTestApp(t, input, true)

	err := ta.Create(context.Background())
	require.Error(t, err)

	out := ta.output()
	assert.Contains(t, out, "Please fix the following:")
	assert.Contains(t, out, "  title: ")
	assert.Contains(t, out, "  content: ")
	assert.Zero(t, ta.srv.Calls(apitest.RouteCreatePost))
}

func TestCreate_SignedOut(t *testing.T) {
	content := strings.Repeat("x", 60)
	ta := newTestApp(t, "A valid title\nTechnology\n\n"+content+"\n\n\n", false)

	err := ta.Create(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Contains(t, ta.output(), "You are not signed in.")
	assert.Zero(t, ta.srv.TotalCalls())
}

func TestEdit_ChangesOnlyAnsweredFields(t *testing.T) {
	// title, category, tags, content (empty line ends it), published
	ta := newTestApp(t, "Renamed post title\n\n-\n\n\n", true)
	ta.srv.SeedPosts(apitest.NewPost("3", "Original title", "Technology", "go"))

	require.NoError(t, ta.Edit(context.Background(), []string{"3"}))
	assert.Contains(t, ta.output(), "Updated post 3: Renamed post title")

	p, ok := ta.srv.Post("3")
	require.True(t, ok)
	assert.Equal(t, "Renamed post title", p.Title)
	assert.Equal(t, "Technology", p.Category)
	assert.Empty(t, p.Tags)
	assert.True(t, p.Published)
}

func TestEdit_NothingToChange(t *testing.T) {
	ta := newTestApp(t, "\n\n\n\n\n", true)
	ta.srv.SeedPosts(apitest.NewPost("3", "Original title", "Technology"))

	require.NoError(t, ta.Edit(context.Background(), []string{"3"}))
	assert.Contains(t, ta.output(), "Nothing to change.")
	assert.Zero(t, ta.srv.Calls(apitest.RouteUpdatePost))
}

func TestDelete(t *testing.T) {
	ta := newTestApp(t, "n\ny\n", true)
	ta.srv.SeedPosts(apitest.NewPost("5", "Doomed post", "Travel"))
	ctx := context.Background()

	require.NoError(t, ta.Delete(ctx, []string{"5"}))
	assert.Contains(t, ta.output(), "Canceled.")
	_, ok := ta.srv.Post("5")
	require.True(t, ok)

	require.NoError(t, ta.Delete(ctx, []string{"5"}))
	assert.Contains(t, ta.output(), "Deleted post 5")
	_, ok = ta.srv.Post("5")
	assert.False(t, ok)
}

func TestLogin(t *testing.T) {
	stubPassword(t, apitest.DemoPassword)
	ta := newTestApp(t, apitest.DemoUser.Email+"\n", false)

	require.NoError(t, ta.Login(context.Background()))
	assert.True(t, ta.isLoggedIn())
	assert.Equal(t, "(demo@example.com)", ta.status())
	assert.Contains(t, ta.output(), "Signed in as demo@example.com")
}

func TestLogin_WrongPassword(t *testing.T) {
	stubPassword(t, "not-the-password")
	ta := newTestApp(t, apitest.DemoUser.Email+"\n", false)

	err := ta.Login(context.Background())
	require.ErrorIs(t, err, client.ErrInvalidCredentials)
	assert.False(t, ta.isLoggedIn())
	assert.Equal(t, "(guest)", ta.status())
	assert.Contains(t, ta.output(), "Invalid email or password.")
}

func TestLogin_PasswordReadError(t *testing.T) {
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { getPassword = orig })

	ta := newTestApp(t, "demo@example.com\n", false)
	require.Error(t, ta.Login(context.Background()))
	assert.Zero(t, ta.srv.TotalCalls())
}

func TestRegister(t *testing.T) {
	stubPassword(t, "secret123")
	ta := newTestApp(t, "New Writer\nnew@example.com\n", false)

	require.NoError(t, ta.Register(context.Background()))
	assert.True(t, ta.isLoggedIn())
	assert.Contains(t, ta.output(), "Welcome, New Writer!")
}

func TestRegister_ExistingEmail(t *testing.T) {
	stubPassword(t, "secret123")
	ta := newTestApp(t, "Someone\n"+apitest.DemoUser.Email+"\n", false)

	err := ta.Register(context.Background())
	require.ErrorIs(t, err, client.ErrAlreadyExists)
	assert.Contains(t, ta.output(), "Already exists.")
}

func TestLogout(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.srv.SeedPosts(apitest.NewPosts(1, 2, "Technology")...)
	ctx := context.Background()

	require.NoError(t, ta.List(ctx, nil))
	require.NoError(t, ta.Logout(ctx))
	assert.False(t, ta.isLoggedIn())
	assert.Contains(t, ta.output(), "Signed out")

	require.NoError(t, ta.List(ctx, nil))
	assert.Contains(t, ta.output(), "Sign in to see posts.")
	assert.Equal(t, 1, ta.srv.Calls(apitest.RouteListPosts))
}

func TestUnauthorized_ForgetsCachedList(t *testing.T) {
	stubPassword(t, apitest.DemoPassword)
	ta := newTestApp(t, apitest.DemoUser.Email+"\n", true)
	ta.srv.SeedPosts(apitest.NewPosts(1, 2, "Technology")...)
	ctx := context.Background()

	require.NoError(t, ta.List(ctx, nil))

	ta.srv.FailNext(apitest.RouteGetPost, http.StatusUnauthorized)
	require.ErrorIs(t, ta.Show(ctx, []string{"999"}), client.ErrUnauthenticated)
	assert.Contains(t, ta.output(), "You are not signed in.")
	assert.Equal(t, "(guest)", ta.status())

	require.NoError(t, ta.Login(ctx))
	require.NoError(t, ta.List(ctx, nil))
	assert.Equal(t, 2, ta.srv.Calls(apitest.RouteListPosts), "list is fetched again for the new session")
}

func TestInfo_ShowsSessionAndCache(t *testing.T) {
	ta := newTestApp(t, "", true)
	ta.srv.SeedPosts(apitest.NewPosts(1, 2, "Technology")...)
	ctx := context.Background()

	require.NoError(t, ta.List(ctx, nil))
	require.NoError(t, ta.Info(ctx))

	out := ta.output()
	assert.Contains(t, out, "session: ("+apitest.DemoUser.Email+")")
	assert.Contains(t, out, "cache: 1 lists, 2 posts, ttl 1m0s")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Cannot reach the server.", describe(client.ErrNetwork))
	assert.Equal(t, "The server took too long to answer, try again.", describe(client.ErrTimeout))
	assert.Equal(t, "Error: server error: status 500", describe(&client.StatusError{StatusCode: 500}))
}

func TestNewApp_RestoresPersistedSession(t *testing.T) {
	srv := apitest.New(t)
	token := srv.WithDemoUser()
	srv.SeedPosts(apitest.NewPosts(1, 2, "Technology")...)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "state", "gophblog.db")

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = srv.URL
	cfg.DatabasePath = path
	cfg.LogLevel = "error"

	first, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	user := apitest.DemoUser
	require.NoError(t, first.session.SetCredentials(ctx, token, &user))
	first.Close()

	db, err := storage.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	second, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(second.Close)

	assert.False(t, second.isLoggedIn())
	_, err = second.auth.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, second.isLoggedIn())
	assert.Equal(t, "(demo@example.com)", second.status())

	res := second.query.Posts(ctx, models.Filters{})
	require.NoError(t, res.Err)
	assert.Len(t, res.Posts, 2)
}

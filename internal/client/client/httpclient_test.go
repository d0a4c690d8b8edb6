package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/apitest"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newClient(t *testing.T, baseURL string, token string, opts ...Option) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(baseURL, staticToken(token), opts...)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	_, err := NewHTTPClient("not a url", nil)
	require.Error(t, err)

	_, err = NewHTTPClient("://missing-scheme", nil)
	require.Error(t, err)
}

func TestListPosts_PaginationFromTotalHeader(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPosts(apitest.NewPosts(1, 23, "Technology")...)
	srv.SeedPosts(apitest.NewPosts(100, 4, "Travel")...)

	c := newClient(t, srv.URL, "")
	key := models.Filters{Category: "Technology", Page: 1, Limit: 9}.Key()

	page, err := c.ListPosts(context.Background(), key)
	require.NoError(t, err)

	assert.Len(t, page.Posts, 9)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 9, Total: 23, TotalPages: 3}, page.Pagination)
	for _, p := range page.Posts {
		assert.Equal(t, "Technology", p.Category)
	}
}

func TestListPosts_OutOfRangePageIsEmpty(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPosts(apitest.NewPosts(1, 5, "Food")...)

	c := newClient(t, srv.URL, "")
	page, err := c.ListPosts(context.Background(), models.Filters{Page: 7, Limit: 10}.Key())
	require.NoError(t, err)

	assert.Empty(t, page.Posts)
	assert.Equal(t, 5, page.Pagination.Total)
}

func TestListPosts_EnvelopeAndFallbackTotal(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		header    string
		wantTotal int
		wantLen   int
	}{
		{name: "envelope total", body: `{"data":[{"id":"1"}],"total":42}`, wantTotal: 42, wantLen: 1},
		{name: "header wins over envelope", body: `{"data":[{"id":"1"}],"total":42}`, header: "7", wantTotal: 7, wantLen: 1},
		{name: "bare array without header", body: `[{"id":"1"},{"id":"2"}]`, wantTotal: 12, wantLen: 2},
		{name: "empty body", body: ``, wantTotal: 10, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set(TotalCountHeader, tt.header)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			c := newClient(t, srv.URL, "")
			page, err := c.ListPosts(context.Background(), models.Filters{Page: 2, Limit: 10}.Key())
			require.NoError(t, err)
			assert.Len(t, page.Posts, tt.wantLen)
			assert.Equal(t, tt.wantTotal, page.Pagination.Total)
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotRequestID, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(RequestIDHeader)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"9"}`))
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv.URL, "tok-123")
	p, err := c.CreatePost(context.Background(), models.CreatePostDTO{Title: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "9", p.ID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "request id must be a uuid")
}

func TestRequestHeaders_NoTokenNoAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv.URL, "")
	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestUnauthorized_RunsHookBeforeReturning(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPosts(apitest.NewPost("1", "First post", "Technology"))

	var hookCalls atomic.Int32
	c := newClient(t, srv.URL, "garbage-token", OnUnauthorized(func(context.Context) { hookCalls.Add(1) }))

	_, err := c.GetPost(context.Background(), "1")
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestLogin(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser(apitest.DemoUser, apitest.DemoPassword)

	var hookCalls atomic.Int32
	c := newClient(t, srv.URL, "", OnUnauthorized(func(context.Context) { hookCalls.Add(1) }))

	res, err := c.Login(context.Background(), models.Credentials{Email: apitest.DemoUser.Email, Password: apitest.DemoPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.User)
	assert.Equal(t, apitest.DemoUser.ID, res.User.ID)

	_, err = c.Login(context.Background(), models.Credentials{Email: apitest.DemoUser.Email, Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestRegister_Conflict(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser(apitest.DemoUser, apitest.DemoPassword)

	c := newClient(t, srv.URL, "")
	_, err := c.Register(context.Background(), models.Registration{Name: "Demo", Email: apitest.DemoUser.Email, Password: "secret1"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	res, err := c.Register(context.Background(), models.Registration{Name: "New", Email: "new@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestGetPost_NotFound(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv.URL, "")

	_, err := c.GetPost(context.Background(), "404")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServerError(t *testing.T) {
	srv := apitest.New(t)
	srv.FailNext(apitest.RouteListPosts, http.StatusInternalServerError)

	c := newClient(t, srv.URL, "")
	_, err := c.ListPosts(context.Background(), models.Filters{}.Key())
	require.ErrorIs(t, err, ErrServer)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "Internal Server Error", se.Message)
}

func TestTimeout(t *testing.T) {
	srv := apitest.New(t)
	srv.SetDelay(500 * time.Millisecond)

	c := newClient(t, srv.URL, "", WithTimeout(50*time.Millisecond))
	_, err := c.Categories(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCallerCancellation(t *testing.T) {
	srv := apitest.New(t)
	release := srv.Hold(apitest.RouteCategories, nil)
	defer release()

	c := newClient(t, srv.URL, "")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := c.Categories(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, "")
	_, err := c.Categories(context.Background())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestDeletePost(t *testing.T) {
	srv := apitest.New(t)
	token := srv.WithDemoUser()
	srv.SeedPosts(apitest.NewPost("42", "Answer post", "Technology"))

	c := newClient(t, srv.URL, token)
	require.NoError(t, c.DeletePost(context.Background(), "42"))

	err := c.DeletePost(context.Background(), "42")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePost_RefreshesUpdatedAt(t *testing.T) {
	srv := apitest.New(t)
	token := srv.WithDemoUser()
	original := apitest.NewPost("5", "Original title", "Technology")
	srv.SeedPosts(original)

	c := newClient(t, srv.URL, token)
	title := "Updated title"
	p, err := c.UpdatePost(context.Background(), "5", models.UpdatePostDTO{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, title, p.Title)
	assert.Equal(t, "updated-title", p.Slug)
	assert.True(t, p.UpdatedAt.After(original.UpdatedAt))
	assert.False(t, p.UpdatedAt.Before(p.CreatedAt))
}

func TestRateLimit_Paces(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv.URL, "", WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Categories(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

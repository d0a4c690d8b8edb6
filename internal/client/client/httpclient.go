package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second

	RequestIDHeader  = "X-Request-ID"
	TotalCountHeader = "X-Total-Count"
)

type HTTPClient struct {
	baseURL        *url.URL
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	limiter        *rate.Limiter
	timeout        time.Duration
	logger         logging.Logger
}

type Option func(*HTTPClient)

// WithTimeout bounds every request, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit paces outbound requests; rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l.With("module", "http_client") }
}

// OnUnauthorized registers fn to run on every 401 response before the
// error is returned to the caller.
func OnUnauthorized(fn func(ctx context.Context)) Option {
	return func(c *HTTPClient) { c.onUnauthorized = fn }
}

// NewHTTPClient returns a client for the blog API rooted at baseURL.
// tokens supplies the bearer token attached to authenticated requests.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &HTTPClient{
		baseURL: u,
		http:    &http.Client{},
		tokens:  tokens,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one API call. out, when non-nil, receives the decoded
// JSON body of a 2xx response.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	login  bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *HTTPClient) do(ctx context.Context, r request) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.mapTransportError(ctx, err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return nil, c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.mapTransportError(ctx, err)
	}

	c.logger.Debug(ctx, "request done",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started),
	)

	if err := c.mapStatus(ctx, resp.StatusCode, payload, r.login); err != nil {
		return nil, err
	}

	if r.out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, r.out); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", ErrServer, err)
		}
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: payload}, nil
}

// mapTransportError classifies failures that produced no HTTP response.
// Cancellation by the caller is returned as the caller's context error.
func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func (c *HTTPClient) mapStatus(ctx context.Context, status int, payload []byte, login bool) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := errorMessage(payload)

	switch status {
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		if login {
			return ErrInvalidCredentials
		}
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, msg)
		}
		return ErrAlreadyExists
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return &StatusError{StatusCode: status, Message: msg}
	}
}

func errorMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func postPath(id string) string {
	return "/posts/" + url.PathEscape(id)
}

func (c *HTTPClient) ListPosts(ctx context.Context, key models.ListKey) (*models.PostsPage, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: "/posts", query: key.Query()})
	if err != nil {
		return nil, err
	}

	posts, envelopeTotal, err := decodePostList(resp.body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode posts: %v", ErrServer, err)
	}

	total := (key.Page-1)*key.Limit + len(posts)
	if envelopeTotal != nil {
		total = *envelopeTotal
	}
	if h := resp.header.Get(TotalCountHeader); h != "" {
		if n, err := strconv.Atoi(h); err == nil {
			total = n
		}
	}

	return &models.PostsPage{
		Posts:      posts,
		Pagination: models.NewPagination(key.Page, key.Limit, total),
	}, nil
}

// decodePostList accepts a bare JSON array or a {"data": [...], "total": n}
// envelope.
func decodePostList(b []byte) ([]models.Post, *int, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []models.Post{}, nil, nil
	}
	if b[0] == '[' {
		var posts []models.Post
		if err := json.Unmarshal(b, &posts); err != nil {
			return nil, nil, err
		}
		return posts, nil, nil
	}

	var env struct {
		Data  []models.Post `json:"data"`
		Total *int          `json:"total"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, nil, err
	}
	if env.Data == nil {
		env.Data = []models.Post{}
	}
	return env.Data, env.Total, nil
}

func (c *HTTPClient) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if _, err := c.do(ctx, request{method: http.MethodGet, path: postPath(id), out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) CreatePost(ctx context.Context, dto models.CreatePostDTO) (*models.Post, error) {
	var p models.Post
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/posts", body: dto, out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) UpdatePost(ctx context.Context, id string, dto models.UpdatePostDTO) (*models.Post, error) {
	var p models.Post
	if _, err := c.do(ctx, request{method: http.MethodPut, path: postPath(id), body: dto, out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) DeletePost(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: postPath(id)})
	return err
}

func (c *HTTPClient) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/categories", out: &cats}); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (*models.AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, body any) (*models.AuthResult, error) {
	var res models.AuthResult
	if _, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, out: &res, login: true}); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, ErrInvalidCredentials
	}
	return &res, nil
}

// Package apitest runs an in-memory blog backend for tests. It speaks the
// same REST dialect as the real collaborator API: list filters with
// X-Total-Count, bearer-token protected writes and the auth endpoints.
//
// Every handled request is counted by route ("GET /posts",
// "GET /posts/{id}", ...). Tests can hold matching requests until
// released, inject latency, or force the next response status.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/go-chi/chi/v5"
)

// Route keys accepted by Calls, FailNext and Hold.
const (
	RouteListPosts  = "GET /posts"
	RouteGetPost    = "GET /posts/{id}"
	RouteCreatePost = "POST /posts"
	RouteUpdatePost = "PUT /posts/{id}"
	RouteDeletePost = "DELETE /posts/{id}"
	RouteCategories = "GET /categories"
	RouteLogin      = "POST /auth/login"
	RouteRegister   = "POST /auth/register"
)

type account struct {
	user     models.User
	password string
}

type hold struct {
	route string
	match func(*http.Request) bool
	ch    chan struct{}
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	posts      map[string]models.Post
	order      []string
	categories []models.Category
	accounts   []account
	secret     []byte
	nextID     int

	calls    map[string]int
	failNext map[string]int
	holds    []*hold
	delay    time.Duration
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		posts:    make(map[string]models.Post),
		secret:   []byte("apitest-secret"),
		nextID:   1,
		calls:    make(map[string]int),
		failNext: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(func() {
		s.releaseAll()
		s.Close()
	})
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)

	r.Get("/posts", s.listPosts)
	r.Post("/posts", s.createPost)
	r.Get("/posts/{id}", s.getPost)
	r.Put("/posts/{id}", s.updatePost)
	r.Delete("/posts/{id}", s.deletePost)
	r.Get("/categories", s.listCategories)
	r.Post("/auth/login", s.login)
	r.Post("/auth/register", s.register)

	return r
}

type userKey struct{}

// authenticate rejects a present but invalid token on every route, and a
// missing token on writes.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			if r.Method != http.MethodGet {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
		userID, err := userIDFromToken(token, s.secret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

// enter records the call and applies holds, delay and forced failures.
// It returns false when a response was already written.
func (s *Server) enter(w http.ResponseWriter, r *http.Request, route string) bool {
	s.mu.Lock()
	s.calls[route]++
	delay := s.delay
	status, fail := s.failNext[route]
	if fail {
		delete(s.failNext, route)
	}
	var waits []chan struct{}
	for _, h := range s.holds {
		if h.route == route && (h.match == nil || h.match(r)) {
			waits = append(waits, h.ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range waits {
		select {
		case <-ch:
		case <-r.Context().Done():
			return false
		}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return false
		}
	}

	if fail {
		writeJSON(w, status, map[string]any{"success": false, "message": http.StatusText(status)})
		return false
	}
	return true
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// FailNext makes the next request to route answer with status.
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[route] = status
}

// SetDelay delays every response by d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hold blocks requests to route accepted by match (nil matches all) until
// the returned release func is called. Release is idempotent.
func (s *Server) Hold(route string, match func(*http.Request) bool) (release func()) {
	h := &hold{route: route, match: match, ch: make(chan struct{})}

	s.mu.Lock()
	s.holds = append(s.holds, h)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			found := false
			for i, other := range s.holds {
				if other == h {
					s.holds = append(s.holds[:i], s.holds[i+1:]...)
					found = true
					break
				}
			}
			s.mu.Unlock()
			if found {
				close(h.ch)
			}
		})
	}
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	holds := s.holds
	s.holds = nil
	s.mu.Unlock()
	for _, h := range holds {
		close(h.ch)
	}
}

// QueryParam returns a matcher for Hold on a single query parameter.
func QueryParam(name, value string) func(*http.Request) bool {
	return func(r *http.Request) bool { return r.URL.Query().Get(name) == value }
}

// AddUser registers an account usable with the login endpoint.
func (s *Server) AddUser(u models.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, account{user: u, password: password})
}

// IssueToken signs a valid token for userID.
func (s *Server) IssueToken(userID string) string {
	token, err := generateToken(userID, s.secret, 24*time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// SeedPosts stores posts as-is, in order. Empty ids are assigned.
func (s *Server) SeedPosts(posts ...models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		if p.ID == "" {
			p.ID = s.allocID()
		} else if n, err := strconv.Atoi(p.ID); err == nil && n >= s.nextID {
			s.nextID = n + 1
		}
		if _, exists := s.posts[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.posts[p.ID] = p.Clone()
	}
}

// SeedCategories replaces the category list; post counts are computed.
func (s *Server) SeedCategories(cats ...models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]models.Category(nil), cats...)
}

// Post returns the stored post with id.
func (s *Server) Post(id string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return p.Clone(), ok
}

func (s *Server) allocID() string {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	return id
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteListPosts) {
		return
	}

	q := r.URL.Query()

	s.mu.Lock()
	matched := make([]models.Post, 0, len(s.order))
	for _, id := range s.order {
		p := s.posts[id]
		if matches(p, q) {
			matched = append(matched, p.Clone())
		}
	}
	s.mu.Unlock()

	if field := q.Get("_sort"); field != "" {
		desc := q.Get("_order") == models.SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return less(matched[j], matched[i], field)
			}
			return less(matched[i], matched[j], field)
		})
	}

	total := len(matched)
	page := atoiDefault(q.Get("_page"), 0)
	limit := atoiDefault(q.Get("_limit"), 0)
	if page > 0 && limit > 0 {
		start := (page - 1) * limit
		switch {
		case start >= len(matched):
			matched = matched[:0]
		case start+limit < len(matched):
			matched = matched[start : start+limit]
		default:
			matched = matched[start:]
		}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("Access-Control-Expose-Headers", "X-Total-Count")
	writeJSON(w, http.StatusOK, matched)
}

func matches(p models.Post, q url.Values) bool {
	get := q.Get

	if v := get("category"); v != "" && p.Category != v {
		return false
	}
	if v := get("tags_like"); v != "" {
		found := false
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), strings.ToLower(v)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if v := get("q"); v != "" {
		needle := strings.ToLower(v)
		hay := strings.ToLower(p.Title + "\n" + p.Content + "\n" + p.Excerpt)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	if v := get("author.id"); v != "" && p.Author.ID != v {
		return false
	}
	if v := get("published"); v != "" && strconv.FormatBool(p.Published) != v {
		return false
	}
	if v := get("featured"); v != "" && strconv.FormatBool(p.Featured) != v {
		return false
	}
	return true
}

func less(a, b models.Post, field string) bool {
	switch field {
	case models.SortByUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case models.SortByViews:
		return a.Views < b.Views
	case models.SortByLikes:
		return a.Likes < b.Likes
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteGetPost) {
		return
	}

	p, ok := s.Post(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteCreatePost) {
		return
	}

	var dto models.CreatePostDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}

	now := time.Now().UTC()
	userID, _ := r.Context().Value(userKey{}).(string)

	s.mu.Lock()
	p := models.Post{
		ID:        s.allocID(),
		Title:     dto.Title,
		Slug:      models.Slugify(dto.Title),
		Content:   dto.Content,
		Excerpt:   dto.Excerpt,
		Author:    s.authorLocked(userID),
		Category:  dto.Category,
		Tags:      append([]string(nil), dto.Tags...),
		Published: dto.Published,
		ReadTime:  models.ReadTime(dto.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Excerpt == "" {
		p.Excerpt = models.Excerpt(p.Content)
	}
	s.posts[p.ID] = p
	s.order = append(s.order, p.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) authorLocked(userID string) models.Author {
	for _, a := range s.accounts {
		if a.user.ID == userID {
			return models.Author{ID: a.user.ID, Name: a.user.Name, Avatar: a.user.Avatar}
		}
	}
	return models.Author{ID: userID}
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteUpdatePost) {
		return
	}

	var dto models.UpdatePostDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	p, ok := s.posts[id]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	if dto.Title != nil {
		p.Title = *dto.Title
		p.Slug = models.Slugify(p.Title)
	}
	if dto.Content != nil {
		p.Content = *dto.Content
		p.ReadTime = models.ReadTime(p.Content)
	}
	if dto.Excerpt != nil {
		p.Excerpt = *dto.Excerpt
	}
	if dto.Category != nil {
		p.Category = *dto.Category
	}
	if dto.Tags != nil {
		p.Tags = append([]string(nil), (*dto.Tags)...)
	}
	if dto.Published != nil {
		p.Published = *dto.Published
	}
	p.UpdatedAt = time.Now().UTC()
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	s.posts[id] = p
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, p.Clone())
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteDeletePost) {
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.posts[id]
	if ok {
		delete(s.posts, id)
		for i, other := range s.order {
			if other == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteCategories) {
		return
	}

	s.mu.Lock()
	out := make([]models.Category, len(s.categories))
	for i, c := range s.categories {
		c.PostCount = 0
		for _, p := range s.posts {
			if p.Category == c.Name {
				c.PostCount++
			}
		}
		out[i] = c
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteLogin) {
		return
	}

	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request"})
		return
	}

	s.mu.Lock()
	var found *models.User
	for _, a := range s.accounts {
		if a.user.Email == creds.Email && a.password == creds.Password {
			u := a.user
			found = &u
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResult{
		Success: true,
		User:    found,
		Token:   s.IssueToken(found.ID),
		Message: "Login successful",
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, r, RouteRegister) {
		return
	}

	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request"})
		return
	}

	s.mu.Lock()
	for _, a := range s.accounts {
		if a.user.Email == reg.Email {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "User already exists"})
			return
		}
	}
	u := models.User{ID: "u" + s.allocID(), Name: reg.Name, Email: reg.Email, Role: "user"}
	s.accounts = append(s.accounts, account{user: u, password: reg.Password})
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, models.AuthResult{
		Success: true,
		User:    &u,
		Token:   s.IssueToken(u.ID),
		Message: "Registration successful",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

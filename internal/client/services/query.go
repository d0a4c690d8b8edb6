package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophblog/internal/client/cache"
	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/validation"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Authenticator reports whether a session token is present.
type Authenticator interface {
	IsAuthenticated() bool
}

// PostQueryService serves reads. Without a session every query is skipped
// and reports StatusIdle without touching the network.
type PostQueryService interface {
	Posts(ctx context.Context, filters models.Filters) ListResult
	Search(ctx context.Context, query string, page, limit int) ListResult
	Post(ctx context.Context, id string) PostResult
	Categories(ctx context.Context) CategoriesResult
}

type postQueryService struct {
	api       client.PostAPI
	cache     *cache.PostCache
	auth      Authenticator
	validator *validation.Validator
	group     singleflight.Group
	logger    logging.Logger
}

// NewPostQueryService serves reads from c when fresh and shares concurrent
// fetches for the same key.
func NewPostQueryService(api client.PostAPI, c *cache.PostCache, auth Authenticator, logger logging.Logger) PostQueryService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &postQueryService{
		api:       api,
		cache:     c,
		auth:      auth,
		validator: validation.New(),
		logger:    logger.With("module", "post_query"),
	}
}

func (s *postQueryService) Posts(ctx context.Context, filters models.Filters) ListResult {
	key := filters.Key()
	res := ListResult{Key: key}

	if !s.auth.IsAuthenticated() {
		res.Status = StatusIdle
		return res
	}

	if err := s.validator.Validate(filters); err != nil {
		res.Status = StatusError
		res.Err = err
		return res
	}

	if posts, pg, ok := s.cache.GetList(key); ok {
		res.Posts, res.Pagination = posts, pg
		res.Status = StatusSuccess
		res.FromCache = true
		return res
	}

	flightKey := s.flightKey("list:"+key.String(), cache.TagPostList)

	v, err := s.do(ctx, flightKey, func(ctx context.Context) (any, error) {
		stamp := s.cache.Stamp()
		page, err := s.api.ListPosts(ctx, key)
		if err != nil {
			return nil, err
		}
		if !s.cache.PutList(key, page.Posts, page.Pagination, stamp) {
			s.logger.Debug(ctx, "list invalidated while in flight, not cached", "key", key.String())
		}
		return page, nil
	})
	if err != nil {
		s.logger.Warn(ctx, "list query failed", "key", key.String(), "error", err)
		res.Status = StatusError
		res.Err = err
		return res
	}

	page := v.(*models.PostsPage)
	res.Posts = clonePosts(page.Posts)
	res.Pagination = page.Pagination
	res.Status = StatusSuccess
	return res
}

func (s *postQueryService) Search(ctx context.Context, query string, page, limit int) ListResult {
	return s.Posts(ctx, models.Filters{Search: query, Page: page, Limit: limit})
}

func (s *postQueryService) Post(ctx context.Context, id string) PostResult {
	res := PostResult{ID: id}

	if !s.auth.IsAuthenticated() {
		res.Status = StatusIdle
		return res
	}

	if p, ok := s.cache.GetDetail(id); ok {
		res.Post = &p
		res.Status = StatusSuccess
		res.FromCache = true
		return res
	}

	flightKey := s.flightKey("post:"+id, cache.PostTag(id))

	v, err := s.do(ctx, flightKey, func(ctx context.Context) (any, error) {
		stamp := s.cache.Stamp()
		p, err := s.api.GetPost(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.PutDetail(*p, stamp)
		return p, nil
	})
	if err != nil {
		res.Status = StatusError
		res.Err = err
		return res
	}

	p := v.(*models.Post).Clone()
	res.Post = &p
	res.Status = StatusSuccess
	return res
}

func (s *postQueryService) Categories(ctx context.Context) CategoriesResult {
	var res CategoriesResult

	if !s.auth.IsAuthenticated() {
		res.Status = StatusIdle
		return res
	}

	if cats, ok := s.cache.GetCategories(); ok {
		res.Categories = cats
		res.Status = StatusSuccess
		res.FromCache = true
		return res
	}

	flightKey := s.flightKey("categories", cache.TagCategoryList)

	v, err := s.do(ctx, flightKey, func(ctx context.Context) (any, error) {
		stamp := s.cache.Stamp()
		cats, err := s.api.Categories(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.PutCategories(cats, stamp)
		return cats, nil
	})
	if err != nil {
		res.Status = StatusError
		res.Err = err
		return res
	}

	cats := v.([]models.Category)
	res.Categories = append([]models.Category(nil), cats...)
	res.Status = StatusSuccess
	return res
}

// flightKey scopes a shared fetch to the current cache epoch and to the
// generation of its governing tag. Callers arriving after a reset or an
// invalidation never join a fetch that started before it.
func (s *postQueryService) flightKey(name string, tag cache.Tag) string {
	return name + "@" + strconv.FormatUint(s.cache.Epoch(), 10) + "." + strconv.FormatUint(s.cache.Generation(tag), 10)
}

// do runs fetch once per flight key. The fetch is detached from the
// caller's cancellation so callers sharing it are unaffected when the
// first one gives up; a canceled caller returns its own context error.
func (s *postQueryService) do(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	fetchCtx := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fetch %s panicked: %v", key, r)
			}
		}()
		return fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.logger.Debug(ctx, "joined in-flight request", "key", key)
		}
		return r.Val, r.Err
	}
}

func clonePosts(in []models.Post) []models.Post {
	out := make([]models.Post, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophblog/internal/client/cache"
	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/validation"
	"github.com/dmitrijs2005/gophblog/internal/logging"
)

// PostMutationService writes posts. Every operation needs a session and
// fails with client.ErrUnauthenticated before any network call otherwise.
// Collaborator errors are returned as is and never retried.
type PostMutationService interface {
	Create(ctx context.Context, dto models.CreatePostDTO) (*models.Post, error)
	Update(ctx context.Context, id string, dto models.UpdatePostDTO) (*models.Post, error)
	Delete(ctx context.Context, id string) error
}

type postMutationService struct {
	api       client.PostAPI
	cache     *cache.PostCache
	auth      Authenticator
	validator *validation.Validator
	logger    logging.Logger
}

// NewPostMutationService validates input locally, sends it to api and
// invalidates the affected entries of c on success.
func NewPostMutationService(api client.PostAPI, c *cache.PostCache, auth Authenticator, logger logging.Logger) PostMutationService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &postMutationService{
		api:       api,
		cache:     c,
		auth:      auth,
		validator: validation.New(),
		logger:    logger.With("module", "post_mutation"),
	}
}

// Create invalidates every list; the created post is not cached until it
// is read.
func (s *postMutationService) Create(ctx context.Context, dto models.CreatePostDTO) (*models.Post, error) {
	if !s.auth.IsAuthenticated() {
		return nil, client.ErrUnauthenticated
	}
	if err := s.validator.Validate(dto); err != nil {
		return nil, err
	}
	if dto.Excerpt == "" {
		dto.Excerpt = models.Excerpt(dto.Content)
	}

	p, err := s.api.CreatePost(ctx, dto)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.TagPostList)
	s.logger.Info(ctx, "post created", "id", p.ID)
	return p, nil
}

func (s *postMutationService) Update(ctx context.Context, id string, dto models.UpdatePostDTO) (*models.Post, error) {
	if !s.auth.IsAuthenticated() {
		return nil, client.ErrUnauthenticated
	}
	if err := s.validator.Validate(dto); err != nil {
		return nil, err
	}

	p, err := s.api.UpdatePost(ctx, id, dto)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.PostTag(id), cache.TagPostList)
	s.logger.Info(ctx, "post updated", "id", id)
	return p, nil
}

// Delete treats a missing post as already deleted, so a repeated delete
// succeeds and still invalidates.
func (s *postMutationService) Delete(ctx context.Context, id string) error {
	if !s.auth.IsAuthenticated() {
		return client.ErrUnauthenticated
	}

	err := s.api.DeletePost(ctx, id)
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		return err
	}

	s.cache.Invalidate(cache.PostTag(id), cache.TagPostList)
	if err != nil {
		s.logger.Debug(ctx, "post already deleted", "id", id)
	} else {
		s.logger.Info(ctx, "post deleted", "id", id)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/client/cache"
	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/session"
	"github.com/dmitrijs2005/gophblog/internal/client/validation"
	"github.com/dmitrijs2005/gophblog/internal/logging"
)

// AuthService drives the session store.
//
//   - Login/Register: authenticate against the Auth API and persist the session.
//   - Logout: clear the session and drop every cached post.
//   - Restore: reload a persisted session at start, without network validation.
type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (session.Snapshot, error)
	Current() session.Snapshot
}

type authService struct {
	api       client.AuthAPI
	session   *session.Store
	cache     *cache.PostCache
	validator *validation.Validator
	logger    logging.Logger
}

// NewAuthService keeps store in step with the server and resets c whenever
// the signed-in user changes.
func NewAuthService(api client.AuthAPI, store *session.Store, c *cache.PostCache, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &authService{
		api:       api,
		session:   store,
		cache:     c,
		validator: validation.New(),
		logger:    logger.With("module", "auth"),
	}
}

func (a *authService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if err := a.validator.Validate(creds); err != nil {
		return nil, err
	}

	res, err := a.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, res)
}

func (a *authService) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := a.validator.Validate(reg); err != nil {
		return nil, err
	}

	res, err := a.api.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, res)
}

func (a *authService) establish(ctx context.Context, res *models.AuthResult) (*models.User, error) {
	if res == nil || res.Token == "" {
		return nil, client.ErrInvalidCredentials
	}
	if err := a.session.SetCredentials(ctx, res.Token, res.User); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	a.logger.Info(ctx, "signed in", "user_id", userID(res.User))
	return a.session.User(), nil
}

// Logout always resets the cache, even if clearing durable storage fails.
func (a *authService) Logout(ctx context.Context) error {
	if err := EndSession(ctx, a.session, a.cache); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// EndSession forgets the signed-in user: the session is cleared and every
// cached post, list and in-flight fetch of that session is disowned.
// Logout and the 401 hook of the HTTP client both end a session this way.
// The cache is reset even when clearing durable storage fails.
func EndSession(ctx context.Context, store *session.Store, c *cache.PostCache) error {
	err := store.Clear(ctx)
	c.Reset()
	return err
}

func (a *authService) Restore(ctx context.Context) (session.Snapshot, error) {
	snap, err := a.session.Restore(ctx)
	if err != nil {
		return session.Snapshot{}, err
	}
	if snap.IsAuthenticated() {
		a.logger.Info(ctx, "session restored", "user_id", userID(snap.User))
	}
	return snap, nil
}

func (a *authService) Current() session.Snapshot {
	return a.session.Snapshot()
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// IsAuthError reports whether err means the user has to sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, client.ErrUnauthenticated) || errors.Is(err, client.ErrInvalidCredentials)
}

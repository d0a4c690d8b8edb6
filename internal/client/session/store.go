// Package session keeps the authenticated identity of the client: the bearer
// token and the user it belongs to. Both are held in memory and mirrored to
// the metadata repository so a restart restores them.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/logging"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	Token string
	User  *models.User
}

func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// Store is safe for concurrent use.
//
// Writers (SetCredentials, Clear, Restore) are serialized by wmu for the
// whole of their work, so durable storage and memory always describe the
// same session. Readers only take mu and never wait on the database.
type Store struct {
	wmu sync.Mutex

	mu    sync.RWMutex
	token string
	user  *models.User

	db     *sql.DB
	repo   metadata.Repository
	logger logging.Logger
}

// NewStore returns an empty, unauthenticated store.
//
// With a non-nil db the session is mirrored to the metadata table under the
// keys "token" and "user" (JSON), and Restore reads it back after a restart.
// A nil db keeps the session in memory only, which is what tests and
// throwaway clients use. A nil logger discards output.
func NewStore(db *sql.DB, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{db: db, logger: logger.With("module", "session")}
	if db != nil {
		s.repo = metadata.NewSQLiteRepository(db)
	}
	return s
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Token: s.token, User: copyUser(s.user)}
}

// SetCredentials replaces the session. The in-memory state changes only
// after both keys are persisted.
func (s *Store) SetCredentials(ctx context.Context, token string, user *models.User) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}

	var userJSON []byte
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		userJSON = b
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.db != nil {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			var repo metadata.Repository = metadata.NewSQLiteRepository(tx)
			if err := repo.Set(ctx, tokenKey, []byte(token)); err != nil {
				return err
			}
			if userJSON == nil {
				return repo.Delete(ctx, userKey)
			}
			return repo.Set(ctx, userKey, userJSON)
		})
		if err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = copyUser(user)
	s.mu.Unlock()

	s.logger.Debug(ctx, "session stored", "authenticated", true)
	return nil
}

// Clear drops the in-memory session first, so it never outlives a failed
// delete, then removes the persisted keys.
func (s *Store) Clear(ctx context.Context) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Delete(ctx, tokenKey, userKey); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}

	if wasAuthenticated {
		s.logger.Info(ctx, "session cleared")
	}
	return nil
}

// Restore loads a persisted session. Unreadable state is treated as no
// session and removed.
func (s *Store) Restore(ctx context.Context) (Snapshot, error) {
	if s.repo == nil {
		return s.Snapshot(), nil
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	stored, err := s.repo.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("restore session: %w", err)
	}
	token := stored[tokenKey]
	if len(token) == 0 {
		return Snapshot{}, nil
	}

	var user *models.User
	if raw, ok := stored[userKey]; ok {
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			s.logger.Warn(ctx, "discarding unreadable session", "error", err)
			if err := s.clearLocked(ctx); err != nil {
				return Snapshot{}, err
			}
			return Snapshot{}, nil
		}
		user = &u
	}

	s.mu.Lock()
	s.token = string(token)
	s.user = user
	s.mu.Unlock()

	s.logger.Debug(ctx, "session restored", "user_id", userID(user))
	return s.Snapshot(), nil
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

package client

import (
	"context"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
)

// PostAPI is the part of the collaborator API the post layers depend on.
type PostAPI interface {
	ListPosts(ctx context.Context, key models.ListKey) (*models.PostsPage, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, dto models.CreatePostDTO) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, dto models.UpdatePostDTO) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]models.Category, error)
}

// AuthAPI issues tokens. Token format is opaque to the client.
type AuthAPI interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
	Register(ctx context.Context, reg models.Registration) (*models.AuthResult, error)
}

type Client interface {
	PostAPI
	AuthAPI
}

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

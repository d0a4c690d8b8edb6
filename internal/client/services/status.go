package services

import (
	"github.com/dmitrijs2005/gophblog/internal/client/models"
)

// Status is the lifecycle of a query as seen by the UI.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ListResult is the outcome of a list query. Key identifies the request
// the result answers.
type ListResult struct {
	Key        models.ListKey
	Posts      []models.Post
	Pagination models.Pagination
	Status     Status
	Err        error
	FromCache  bool
}

type PostResult struct {
	ID        string
	Post      *models.Post
	Status    Status
	Err       error
	FromCache bool
}

type CategoriesResult struct {
	Categories []models.Category
	Status     Status
	Err        error
	FromCache  bool
}

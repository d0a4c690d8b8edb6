package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
)

// ListSlot holds the state of one logical list view. Loads may overlap;
// only the result of the most recently started load is applied.
type ListSlot struct {
	mu       sync.Mutex
	query    PostQueryService
	seq      uint64
	state    ListResult
	onChange func(ListResult)
}

// NewListSlot creates an idle slot. onChange, if set, is called with each
// applied result, in order, and must not call back into the slot.
func NewListSlot(query PostQueryService, onChange func(ListResult)) *ListSlot {
	return &ListSlot{query: query, onChange: onChange}
}

// Load runs the query and reports whether its result was applied.
// Superseded results are returned to the caller but leave the slot alone.
func (s *ListSlot) Load(ctx context.Context, filters models.Filters) (ListResult, bool) {
	key := filters.Key()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state = ListResult{
		Key:        key,
		Posts:      s.state.Posts,
		Pagination: s.state.Pagination,
		Status:     StatusLoading,
	}
	s.mu.Unlock()

	res := s.query.Posts(ctx, filters)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return res, false
	}
	s.state = res
	if s.onChange != nil {
		s.onChange(res)
	}
	s.mu.Unlock()

	return res, true
}

func (s *ListSlot) State() ListResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

package models

import (
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Sort fields accepted by the Post API.
const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByViews     = "views"
	SortByLikes     = "likes"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Filters describes one list query. Zero values mean "not set".
type Filters struct {
	Category  string `json:"category,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Search    string `json:"search,omitempty"`
	AuthorID  string `json:"authorId,omitempty"`
	Published *bool  `json:"published,omitempty"`
	Featured  *bool  `json:"featured,omitempty"`
	Page      int    `json:"page,omitempty" validate:"gte=0"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
	SortBy    string `json:"sortBy,omitempty" validate:"omitempty,oneof=createdAt updatedAt views likes"`
	SortOrder string `json:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc"`
}

// Bool returns a pointer to b, for the optional Published/Featured filters.
func Bool(b bool) *bool { return &b }

// ListKey is the canonical form of Filters. Two keys are equal iff
// every set field matches; unset fields stay unset and compare equal
// only to unset fields. Page and limit always carry their defaults,
// and SortOrder is only kept when SortBy is set.
type ListKey struct {
	Category  string
	Tag       string
	Search    string
	AuthorID  string
	Published string
	Featured  string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Key normalizes f into a comparable ListKey.
func (f Filters) Key() ListKey {
	k := ListKey{
		Category: f.Category,
		Tag:      f.Tag,
		Search:   f.Search,
		AuthorID: f.AuthorID,
		Page:     f.Page,
		Limit:    f.Limit,
	}
	if f.Published != nil {
		k.Published = strconv.FormatBool(*f.Published)
	}
	if f.Featured != nil {
		k.Featured = strconv.FormatBool(*f.Featured)
	}
	if k.Page <= 0 {
		k.Page = DefaultPage
	}
	if k.Limit <= 0 {
		k.Limit = DefaultLimit
	}
	if f.SortBy != "" {
		k.SortBy = f.SortBy
		k.SortOrder = f.SortOrder
		if k.SortOrder == "" {
			k.SortOrder = SortDesc
		}
	}
	return k
}

// Query renders the key as Post API query parameters.
func (k ListKey) Query() url.Values {
	v := url.Values{}
	if k.Category != "" {
		v.Set("category", k.Category)
	}
	if k.Tag != "" {
		v.Set("tags_like", k.Tag)
	}
	if k.Search != "" {
		v.Set("q", k.Search)
	}
	if k.AuthorID != "" {
		v.Set("author.id", k.AuthorID)
	}
	if k.Published != "" {
		v.Set("published", k.Published)
	}
	if k.Featured != "" {
		v.Set("featured", k.Featured)
	}
	v.Set("_page", strconv.Itoa(k.Page))
	v.Set("_limit", strconv.Itoa(k.Limit))
	if k.SortBy != "" {
		v.Set("_sort", k.SortBy)
		v.Set("_order", k.SortOrder)
	}
	return v
}

// String is the encoded query; it is stable for equal keys.
func (k ListKey) String() string {
	return k.Query().Encode()
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}

// PostsPage is a fetched list page.
type PostsPage struct {
	Posts      []Post
	Pagination Pagination
}

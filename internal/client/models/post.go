// Package models defines blog post types shared by the client layers.
package models

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Author is a read-only denormalized copy of the post author.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Post is a blog post as returned by the Post API.
// Counters (Views, Likes, CommentsCount) are server-owned.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Author        Author    `json:"author"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Published     bool      `json:"published"`
	Featured      bool      `json:"featured"`
	ReadTime      int       `json:"readTime"`
	Views         int       `json:"views"`
	Likes         int       `json:"likes"`
	CommentsCount int       `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Clone returns a copy that does not share the Tags slice.
func (p Post) Clone() Post {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}

// Category is an entry of GET /categories.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int    `json:"postCount"`
}

// CreatePostDTO is the body of POST /posts.
type CreatePostDTO struct {
	Title     string   `json:"title" validate:"required,min=5,max=100"`
	Content   string   `json:"content" validate:"required,min=50"`
	Category  string   `json:"category" validate:"required"`
	Tags      []string `json:"tags" validate:"max=5,unique,dive,required"`
	Published bool     `json:"published"`
	Excerpt   string   `json:"excerpt,omitempty"`
}

// UpdatePostDTO is the body of PUT /posts/:id. Nil fields are left unchanged.
type UpdatePostDTO struct {
	Title     *string   `json:"title,omitempty" validate:"omitnil,min=5,max=100"`
	Content   *string   `json:"content,omitempty" validate:"omitnil,min=50"`
	Category  *string   `json:"category,omitempty" validate:"omitnil,min=1"`
	Tags      *[]string `json:"tags,omitempty" validate:"omitnil,max=5,unique,dive,required"`
	Published *bool     `json:"published,omitempty"`
	Excerpt   *string   `json:"excerpt,omitempty"`
}

const excerptLength = 150

// Excerpt returns the first 150 characters of content followed by "...".
func Excerpt(content string) string {
	if utf8.RuneCountInString(content) <= excerptLength {
		return content
	}
	return string([]rune(content)[:excerptLength]) + "..."
}

// ReadTime is the estimated reading time in minutes: one minute per
// 1000 characters, never less than one.
func ReadTime(content string) int {
	n := int(math.Ceil(float64(len(content)) / 1000))
	if n < 1 {
		return 1
	}
	return n
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL slug.
func Slugify(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

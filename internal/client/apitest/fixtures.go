package apitest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewPost builds a published post whose timestamps grow with the numeric id.
func NewPost(id, title, category string, tags ...string) models.Post {
	n, _ := strconv.Atoi(id)
	created := epoch.Add(time.Duration(n) * time.Hour)
	content := strings.Repeat(title+" ", 10)
	return models.Post{
		ID:        id,
		Title:     title,
		Slug:      models.Slugify(title),
		Content:   content,
		Excerpt:   models.Excerpt(content),
		Author:    models.Author{ID: "1", Name: "Demo User"},
		Category:  category,
		Tags:      tags,
		Published: true,
		ReadTime:  models.ReadTime(content),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// NewPosts builds n posts in category with ids first..first+n-1.
func NewPosts(first, n int, category string) []models.Post {
	out := make([]models.Post, 0, n)
	for i := first; i < first+n; i++ {
		id := strconv.Itoa(i)
		out = append(out, NewPost(id, fmt.Sprintf("%s post %d", category, i), category))
	}
	return out
}

// DemoUser is the account seeded by WithDemoUser.
var DemoUser = models.User{ID: "1", Name: "Demo User", Email: "demo@example.com", Role: "admin"}

const DemoPassword = "password123"

// WithDemoUser registers DemoUser and returns a valid token for it.
func (s *Server) WithDemoUser() string {
	s.AddUser(DemoUser, DemoPassword)
	return s.IssueToken(DemoUser.ID)
}

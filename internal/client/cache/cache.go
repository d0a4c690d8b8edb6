// Package cache holds the process-wide view of posts seen by the client.
//
// Post records are normalized by id and shared between list and detail
// entries. Entries are governed by tags; invalidating a tag bumps its
// generation and every entry that recorded an older generation stops being
// served. Lists containing an invalidated post are left in place and become
// stale lazily.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
)

const DefaultTTL = 60 * time.Second

// Tag groups cache entries for bulk invalidation.
type Tag string

const (
	TagPostList     Tag = "post-list"
	TagCategoryList Tag = "category-list"
)

func PostTag(id string) Tag {
	return Tag("post:" + id)
}

// Stamp marks the moment a fetch started. Puts carrying a stamp older than
// an invalidation of one of their tags are rejected.
type Stamp struct {
	seq uint64
}

type generations map[Tag]uint64

type record struct {
	post      models.Post
	gens      generations
	fetchedAt time.Time
	stampSeq  uint64
}

type listEntry struct {
	ids        []string
	pagination models.Pagination
	gens       generations
	fetchedAt  time.Time
}

type categoriesEntry struct {
	categories []models.Category
	gens       generations
	fetchedAt  time.Time
}

type Option func(*PostCache)

// WithTTL sets the validity window of every entry; ttl <= 0 keeps the default.
func WithTTL(ttl time.Duration) Option {
	return func(c *PostCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *PostCache) { c.now = now }
}

// PostCache is safe for concurrent use.
type PostCache struct {
	mu sync.RWMutex

	seq   uint64
	floor uint64
	gens  generations

	records    map[string]*record
	lists      map[models.ListKey]*listEntry
	categories *categoriesEntry

	ttl time.Duration
	now func() time.Time
}

// New returns an empty cache. Entries expire after DefaultTTL unless
// WithTTL says otherwise.
func New(opts ...Option) *PostCache {
	c := &PostCache{
		gens:    make(generations),
		records: make(map[string]*record),
		lists:   make(map[models.ListKey]*listEntry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL is the validity window applied to every entry.
func (c *PostCache) TTL() time.Duration {
	return c.ttl
}

// Stamp must be taken before the fetch whose result will be stored.
func (c *PostCache) Stamp() Stamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stamp{seq: c.seq}
}

// Generation returns the current generation of tag; zero if it was never
// invalidated.
func (c *PostCache) Generation(tag Tag) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[tag]
}

// Invalidate bumps the generation of every tag. post-list drops all list
// entries; post:<id> drops the record; category-list drops the categories.
func (c *PostCache) Invalidate(tags ...Tag) {
	if len(tags) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	for _, tag := range tags {
		c.gens[tag] = c.seq

		switch {
		case tag == TagPostList:
			clear(c.lists)
		case tag == TagCategoryList:
			c.categories = nil
		default:
			if id, ok := postID(tag); ok {
				delete(c.records, id)
			}
		}
	}
}

// Reset drops every entry. Fetches stamped before the reset cannot
// repopulate the cache.
func (c *PostCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.floor = c.seq
	clear(c.records)
	clear(c.lists)
	c.categories = nil
}

// Epoch changes on every Reset. Fetches started in an older epoch belong to
// a previous session and must not be shared with the current one.
func (c *PostCache) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.floor
}

// Len reports the number of stored list entries and post records.
func (c *PostCache) Len() (lists, records int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lists), len(c.records)
}

// GetList returns the posts of a valid list entry in server order.
func (c *PostCache) GetList(key models.ListKey) ([]models.Post, models.Pagination, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.lists[key]
	if !ok || !c.fresh(e.gens, e.fetchedAt) {
		return nil, models.Pagination{}, false
	}

	posts := make([]models.Post, 0, len(e.ids))
	for _, id := range e.ids {
		r, ok := c.records[id]
		if !ok {
			return nil, models.Pagination{}, false
		}
		posts = append(posts, r.post.Clone())
	}
	return posts, e.pagination, true
}

// PutList stores a list response and normalizes its posts. It reports
// false, storing nothing, when a governing tag was invalidated after stamp.
// An existing entry for key is replaced.
func (c *PostCache) PutList(key models.ListKey, posts []models.Post, pagination models.Pagination, stamp Stamp) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	tags := make([]Tag, 0, len(posts)+1)
	tags = append(tags, TagPostList)
	for _, p := range posts {
		tags = append(tags, PostTag(p.ID))
	}

	gens, ok := c.capture(stamp, tags)
	if !ok {
		return false
	}

	now := c.now()
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		c.putRecord(p, stamp, now)
	}

	c.lists[key] = &listEntry{
		ids:        ids,
		pagination: pagination,
		gens:       gens,
		fetchedAt:  now,
	}
	return true
}

// GetDetail returns a valid record for id.
func (c *PostCache) GetDetail(id string) (models.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.records[id]
	if !ok || !c.fresh(r.gens, r.fetchedAt) {
		return models.Post{}, false
	}
	return r.post.Clone(), true
}

// PutDetail stores a single post under post:<id>.
func (c *PostCache) PutDetail(post models.Post, stamp Stamp) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.capture(stamp, []Tag{PostTag(post.ID)}); !ok {
		return false
	}
	c.putRecord(post, stamp, c.now())
	return true
}

func (c *PostCache) GetCategories() ([]models.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e := c.categories
	if e == nil || !c.fresh(e.gens, e.fetchedAt) {
		return nil, false
	}
	out := make([]models.Category, len(e.categories))
	copy(out, e.categories)
	return out, true
}

func (c *PostCache) PutCategories(categories []models.Category, stamp Stamp) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	gens, ok := c.capture(stamp, []Tag{TagCategoryList})
	if !ok {
		return false
	}

	stored := make([]models.Category, len(categories))
	copy(stored, categories)
	c.categories = &categoriesEntry{categories: stored, gens: gens, fetchedAt: c.now()}
	return true
}

// capture records the current generation of every tag, or fails if any of
// them moved past the stamp.
func (c *PostCache) capture(stamp Stamp, tags []Tag) (generations, bool) {
	if stamp.seq < c.floor {
		return nil, false
	}

	gens := make(generations, len(tags))
	for _, tag := range tags {
		g := c.gens[tag]
		if g > stamp.seq {
			return nil, false
		}
		gens[tag] = g
	}
	return gens, true
}

// putRecord keeps the record of the most recently started fetch.
func (c *PostCache) putRecord(p models.Post, stamp Stamp, now time.Time) {
	tag := PostTag(p.ID)
	if existing, ok := c.records[p.ID]; ok && existing.stampSeq > stamp.seq {
		return
	}
	c.records[p.ID] = &record{
		post:      p.Clone(),
		gens:      generations{tag: c.gens[tag]},
		fetchedAt: now,
		stampSeq:  stamp.seq,
	}
}

func (c *PostCache) fresh(gens generations, fetchedAt time.Time) bool {
	if c.now().Sub(fetchedAt) >= c.ttl {
		return false
	}
	for tag, g := range gens {
		if c.gens[tag] != g {
			return false
		}
	}
	return true
}

func postID(tag Tag) (string, bool) {
	id, ok := strings.CutPrefix(string(tag), "post:")
	return id, ok && id != ""
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophblog/internal/client/debounce"
	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/services"
)

var errUsage = errors.New("usage")

// parseFilters applies key=value arguments on top of base.
func parseFilters(args []string, base models.Filters) (models.Filters, error) {
	f := base
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || v == "" {
			return f, fmt.Errorf("%w: expected key=value, got %q", errUsage, arg)
		}
		switch k {
		case "category":
			f.Category = v
		case "tag":
			f.Tag = v
		case "q", "search":
			f.Search = v
		case "author":
			f.AuthorID = v
		case "published", "featured":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return f, fmt.Errorf("%w: %s must be true or false", errUsage, k)
			}
			if k == "published" {
				f.Published = models.Bool(b)
			} else {
				f.Featured = models.Bool(b)
			}
		case "page", "limit":
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, fmt.Errorf("%w: %s must be a number", errUsage, k)
			}
			if k == "page" {
				f.Page = n
			} else {
				f.Limit = n
			}
		case "sort":
			f.SortBy = v
		case "order":
			f.SortOrder = v
		default:
			return f, fmt.Errorf("%w: unknown filter %q", errUsage, k)
		}
	}
	return f, nil
}

func (a *App) defaultFilters() models.Filters {
	return models.Filters{Limit: a.config.PageSize}
}

// List shows the first page of posts matching args.
func (a *App) List(ctx context.Context, args []string) error {
	f, err := parseFilters(args, a.defaultFilters())
	if err != nil {
		a.printf("%s\n", err)
		return err
	}
	return a.load(ctx, f)
}

func (a *App) NextPage(ctx context.Context) error {
	pg := a.slot.State().Pagination
	if pg.Page == 0 {
		return a.load(ctx, a.filters)
	}
	if pg.Page >= pg.TotalPages {
		a.printf("Already on the last page.\n")
		return nil
	}
	f := a.filters
	f.Page = pg.Page + 1
	return a.load(ctx, f)
}

func (a *App) PrevPage(ctx context.Context) error {
	pg := a.slot.State().Pagination
	if pg.Page <= 1 {
		a.printf("Already on the first page.\n")
		return nil
	}
	f := a.filters
	f.Page = pg.Page - 1
	return a.load(ctx, f)
}

func (a *App) load(ctx context.Context, f models.Filters) error {
	a.filters = f
	res, _ := a.slot.Load(ctx, f)
	return res.Err
}

// Search runs one search with the joined args, or reads queries line by
// line until an empty line. Typed queries are debounced so only the one
// the user settles on reaches the API.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) > 0 {
		f := a.defaultFilters()
		f.Search = strings.Join(args, " ")
		return a.load(ctx, f)
	}

	a.printf("Type to search, empty line to finish\n")

	searchFilters := func(q string) models.Filters {
		f := a.defaultFilters()
		f.Search = q
		return f
	}

	d := debounce.New(a.config.SearchDebounce, func(q string) {
		a.slot.Load(ctx, searchFilters(q))
	})
	defer d.Stop()

	last := ""
	for {
		line, err := a.reader.ReadString('\n')
		q := strings.TrimSpace(line)
		if q != "" {
			last = q
			d.Push(q)
		}
		if q == "" || err != nil {
			d.Flush()
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			break
		}
	}

	if last != "" {
		a.filters = searchFilters(last)
	}
	return nil
}

// renderList prints the list view. It runs for every applied list result.
func (a *App) renderList(res services.ListResult) {
	var b strings.Builder

	switch res.Status {
	case services.StatusIdle:
		b.WriteString("Sign in to see posts.\n")
	case services.StatusError:
		b.WriteString(describe(res.Err) + "\n")
	case services.StatusSuccess:
		if len(res.Posts) == 0 {
			b.WriteString("No posts found.\n")
			break
		}
		for _, p := range res.Posts {
			fmt.Fprintf(&b, "[%s] %s  (%s)", p.ID, p.Title, p.Category)
			if len(p.Tags) > 0 {
				fmt.Fprintf(&b, " #%s", strings.Join(p.Tags, " #"))
			}
			if !p.Published {
				b.WriteString(" [draft]")
			}
			b.WriteString("\n")
		}
		pg := res.Pagination
		fmt.Fprintf(&b, "page %d/%d (total %d)\n", pg.Page, max(pg.TotalPages, 1), pg.Total)
	default:
		return
	}

	a.printf("%s", b.String())
}

func singleID(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: expected a post id", errUsage)
	}
	return args[0], nil
}

// Show prints one post in full.
func (a *App) Show(ctx context.Context, args []string) error {
	id, err := singleID(args)
	if err != nil {
		a.printf("%s\n", err)
		return err
	}

	res := a.query.Post(ctx, id)
	switch res.Status {
	case services.StatusIdle:
		a.printf("Sign in to read posts.\n")
		return nil
	case services.StatusError:
		a.report(ctx, "show", res.Err)
		return res.Err
	}

	p := res.Post
	a.printf("%s\n", p.Title)
	a.printf("by %s in %s, %s, %d min read\n", p.Author.Name, p.Category, p.CreatedAt.Format("2006-01-02"), p.ReadTime)
	if len(p.Tags) > 0 {
		a.printf("tags: %s\n", strings.Join(p.Tags, ", "))
	}
	a.printf("views %d, likes %d, comments %d\n\n", p.Views, p.Likes, p.CommentsCount)
	a.printf("%s\n", p.Content)
	return nil
}

// Categories prints every category with its post count.
func (a *App) Categories(ctx context.Context) error {
	res := a.query.Categories(ctx)
	switch res.Status {
	case services.StatusIdle:
		a.printf("Sign in to see categories.\n")
		return nil
	case services.StatusError:
		a.report(ctx, "categories", res.Err)
		return res.Err
	}

	if len(res.Categories) == 0 {
		a.printf("No categories.\n")
		return nil
	}
	for _, c := range res.Categories {
		a.printf("%s (%d)\n", c.Name, c.PostCount)
	}
	return nil
}

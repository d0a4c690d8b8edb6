package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
	"github.com/dmitrijs2005/gophblog/internal/client/services"
)

// Create prompts for the fields of a new post and submits it.
func (a *App) Create(ctx context.Context) error {
	var (
		dto models.CreatePostDTO
		err error
	)

	if dto.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if dto.Category, err = getSimpleText(a.reader, "Category", a.out); err != nil {
		return err
	}
	if dto.Tags, err = GetTags(a.reader, "Tags (comma separated, up to 5)", a.out); err != nil {
		return err
	}
	if dto.Content, err = GetMultiline(a.reader, "Content", a.out); err != nil {
		return err
	}
	if dto.Published, err = GetYesNo(a.reader, "Publish now?", false, a.out); err != nil {
		a.printf("%s\n", err)
		return err
	}

	p, err := a.mutation.Create(ctx, dto)
	if err != nil {
		a.report(ctx, "create", err)
		return err
	}

	a.printf("Created post %s: %s\n", p.ID, p.Title)
	return nil
}

// Edit prompts for every field, showing the current value. An empty
// answer keeps the field as it is.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := singleID(args)
	if err != nil {
		a.printf("%s\n", err)
		return err
	}

	cur := a.query.Post(ctx, id)
	switch cur.Status {
	case services.StatusIdle:
		a.printf("Sign in to edit posts.\n")
		return nil
	case services.StatusError:
		a.report(ctx, "edit", cur.Err)
		return cur.Err
	}
	p := cur.Post

	var dto models.UpdatePostDTO
	changed := false

	text := func(label, current string, dst **string) error {
		v, err := getSimpleText(a.reader, fmt.Sprintf("%s [%s]", label, current), a.out)
		if err != nil {
			return err
		}
		if v != "" && v != current {
			*dst = &v
			changed = true
		}
		return nil
	}

	if err := text("Title", p.Title, &dto.Title); err != nil {
		return err
	}
	if err := text("Category", p.Category, &dto.Category); err != nil {
		return err
	}

	tagsLine, err := getSimpleText(a.reader, fmt.Sprintf("Tags [%s] ('-' clears)", strings.Join(p.Tags, ", ")), a.out)
	if err != nil {
		return err
	}
	switch tagsLine {
	case "":
	case "-":
		if len(p.Tags) > 0 {
			tags := []string{}
			dto.Tags = &tags
			changed = true
		}
	default:
		if tags := splitTags(tagsLine); !slices.Equal(tags, p.Tags) {
			dto.Tags = &tags
			changed = true
		}
	}

	content, err := GetMultiline(a.reader, "Content (empty keeps current)", a.out)
	if err != nil {
		return err
	}
	if content != "" && content != p.Content {
		excerpt := models.Excerpt(content)
		dto.Content = &content
		dto.Excerpt = &excerpt
		changed = true
	}

	published, err := GetYesNo(a.reader, "Published?", p.Published, a.out)
	if err != nil {
		a.printf("%s\n", err)
		return err
	}
	if published != p.Published {
		dto.Published = &published
		changed = true
	}

	if !changed {
		a.printf("Nothing to change.\n")
		return nil
	}

	updated, err := a.mutation.Update(ctx, id, dto)
	if err != nil {
		a.report(ctx, "edit", err)
		return err
	}

	a.printf("Updated post %s: %s\n", updated.ID, updated.Title)
	return nil
}

// Delete removes a post after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := singleID(args)
	if err != nil {
		a.printf("%s\n", err)
		return err
	}

	ok, err := GetYesNo(a.reader, fmt.Sprintf("Delete post %s?", id), false, a.out)
	if err != nil {
		a.printf("%s\n", err)
		return err
	}
	if !ok {
		a.printf("Canceled.\n")
		return nil
	}

	if err := a.mutation.Delete(ctx, id); err != nil {
		a.report(ctx, "delete", err)
		return err
	}

	a.printf("Deleted post %s\n", id)
	return nil
}

package cli

import (
	"context"

	"github.com/dmitrijs2005/gophblog/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a name, email and password and creates an account.
// On success the new session is active immediately.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	user, err := a.auth.Register(ctx, models.Registration{Name: name, Email: email, Password: string(password)})
	if err != nil {
		a.report(ctx, "register", err)
		return err
	}

	a.printf("Welcome, %s!\n", user.Name)
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	user, err := a.auth.Login(ctx, models.Credentials{Email: email, Password: string(password)})
	if err != nil {
		a.report(ctx, "login", err)
		return err
	}

	a.filters = models.Filters{Limit: a.config.PageSize}
	a.printf("Signed in as %s\n", user.Email)
	return nil
}

// Logout ends the session and forgets every cached post.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		a.report(ctx, "logout", err)
		return err
	}
	a.filters = models.Filters{Limit: a.config.PageSize}
	a.printf("Signed out\n")
	return nil
}

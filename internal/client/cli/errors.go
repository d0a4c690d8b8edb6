package cli

import (
	"context"
	"errors"
	"sort"

	"github.com/dmitrijs2005/gophblog/internal/client/client"
	"github.com/dmitrijs2005/gophblog/internal/client/services"
	"github.com/dmitrijs2005/gophblog/internal/client/validation"
)

// report prints err in user terms and logs it with the operation name.
func (a *App) report(ctx context.Context, op string, err error) {
	a.logger.Debug(ctx, "command failed", "op", op, "error", err)
	a.printf("%s\n", describe(err))

	var verr *validation.Error
	if errors.As(err, &verr) {
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			a.printf("  %s: %s\n", f, verr.Fields[f])
		}
	}
}

func describe(err error) string {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return "Please fix the following:"
	case errors.Is(err, client.ErrInvalidCredentials):
		return "Invalid email or password."
	case services.IsAuthError(err):
		return "You are not signed in. Use 'login' first."
	case errors.Is(err, client.ErrNotFound):
		return "Not found."
	case errors.Is(err, client.ErrAlreadyExists):
		return "Already exists."
	case errors.Is(err, client.ErrTimeout):
		return "The server took too long to answer, try again."
	case errors.Is(err, client.ErrNetwork):
		return "Cannot reach the server."
	case errors.Is(err, context.Canceled):
		return "Canceled."
	default:
		return "Error: " + err.Error()
	}
}

// Package client talks to the blog backend.
//
// # Overview
//
// The package provides:
//  1. Transport-agnostic contracts for the collaborator APIs: PostAPI
//     (list/get/create/update/delete posts, categories) and AuthAPI
//     (login, register).
//  2. HTTPClient, a JSON-over-HTTP implementation that attaches the bearer
//     token from a TokenSource, stamps every request with an X-Request-ID,
//     paces outbound calls with a token bucket, bounds each call with a
//     fixed timeout and classifies failures into sentinel errors.
//
// # Error Handling
//
// Failures are reported as sentinel errors matched with errors.Is:
// ErrUnauthenticated, ErrInvalidCredentials, ErrNotFound, ErrAlreadyExists,
// ErrTimeout, ErrNetwork and ErrServer (via *StatusError).
//
// A 401 response runs the OnUnauthorized hook before the error is
// returned, so the session is already cleared when the caller sees
// ErrUnauthenticated.
//
// # Concurrency
//
// HTTPClient is safe for concurrent use. All operations accept a context
// and honor its cancellation.
package client

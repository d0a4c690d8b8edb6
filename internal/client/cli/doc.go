// Package cli provides the interactive gophblog terminal client.
//
// It wires configuration, the local session database, the Blog API client,
// the post cache and the application services, then runs a REPL over them.
//
// Commands:
//   - register / login / logout
//   - list [key=value ...], next, prev: browse posts with filters
//   - search [text]: one-off search, or interactive debounced search
//   - show <id>, categories
//   - create, edit <id>, delete <id>
//   - info: session and cache state
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

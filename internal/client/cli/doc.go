// Package cli provides the interactive taskdesk command-line client.
//
// It wires configuration, local storage, the API client and the state stores
// into a REPL. On start the persisted session is restored; after that the
// user manages tasks, switches the theme and, as an admin, browses every
// user's tasks.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli

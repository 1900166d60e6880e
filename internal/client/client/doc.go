// Package client contains the client-side plumbing for taskdesk.
//
// # Overview
//
// The package provides:
//  1. The remote API contract (see the Client interface): login/register,
//     session verification, per-user task CRUD and the two admin listings.
//  2. A JSON-over-HTTP implementation (see HTTPClient) that attaches the
//     bearer token and a request id to every call, decodes responses into
//     validated models and maps HTTP statuses to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite file and applying embedded goose migrations.
//
// # Error Handling
//
// Callers match with errors.Is: ErrUnavailable, ErrUnauthorized,
// ErrInvalidCredentials, ErrNotFound, ErrServer, ErrBadResponse. The server's
// own message is available through Message or errors.As on *ServerError.
//
// HTTPClient is safe for concurrent use. All calls honor context cancellation.
package client

// Package repositories implements SQLite persistence for client-local state.
//
// Key Implementations:
//   - [TokenRepository] : the bearer token of the signed-in user, one row per service origin
//
// Tokens are keyed by the API base URL so switching between environments
// (e.g. a local dev server and production) never presents a token to the wrong service.
package repositories

// Package services implements stateless clients for the course service HTTP API.
//
// # Request Plumbing
//
// [APIClient] owns the transport concerns shared by every call: a per-request
// deadline, bearer authorization, request IDs, optional client-side rate limiting
// and uniform error classification. A request that exceeds its deadline is aborted
// and reported as [shared.ErrTimeout], distinct from any server-reported failure.
//
// # Clients
//
//   - [AuthService] : register, login, current user, logout
//   - [RatingService] : course rating stats and the caller's own vote
//   - [CatalogService] : read-only course and class listings
//
// # Error Handling
//
// Failures are returned as [*APIError], which matches the shared sentinels with errors.Is:
//   - [shared.ErrTimeout] : deadline exceeded
//   - [shared.ErrUnauthorized] : 401/403, or no token available
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrValidation] : any other 4xx
//   - [shared.ErrService] : 5xx, transport failures, unparseable bodies
//
// The message comes from the service's "detail" field when present and is
// synthesized from the status code otherwise.
package services

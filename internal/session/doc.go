// Package session owns the single current authentication context of the client.
//
// A [Manager] starts in [PhaseInitializing] and resolves exactly once to
// [PhaseAuthenticated] or [PhaseAnonymous]. Initialization verifies a stored
// token against the service while a guard timer races the call: whichever
// finishes first wins a single compare-and-set and the loser's result is dropped.
//
// After initialization the session only moves through Login, Register, Logout
// and Refresh. Every failure resolves to one of the two stable phases; there is
// no error phase. The most recent login or registration failure is kept in
// [Snapshot.LastError].
//
// The bearer token is persisted through a [TokenStore]. Only the Manager writes it.
package session

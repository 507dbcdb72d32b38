// Package ratings owns per-course rating state for the acting user.
//
// An [Engine] tracks one [State] per active course: the user's own vote, the
// course aggregate and the phase of the last write. Writes are optimistic. The
// engine snapshots the state, applies the change locally, performs the remote
// call and then either commits the refreshed aggregate or restores the snapshot.
//
// Overlapping writes to the same course are not serialized. Each transition is
// atomic under the engine lock and results land in completion order.
package ratings

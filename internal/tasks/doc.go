// Package tasks runs multi-course jobs for the CLI with progress reporting.
//
// # Snapshots
//
// [ExportEngine.Snapshot] assembles a [models.CourseExport] from the catalog: the course detail,
// fresh rating stats (falling back to the aggregate embedded in the course) and, when a user is
// signed in, their own vote.
//
// # Bulk Export
//
// [ExportEngine.BulkExport] fetches courses through a rate limiter and writes them with a pool of
// workers in one of the formatter's formats, then writes export_manifest.json summarizing the run.
// A course that fails to fetch or write is recorded in the result and does not stop the others.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate] values. Sends never block: updates are
// dropped when the channel is full.
package tasks

// Package tasks runs the long-lived library operations with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] provides two operations:
//
//  1. [LibraryEngine.Dump] : Fetch every library endpoint
//     - Retrieves profile, artists, albums, tracks, favorites, playlists, embeddings
//     - Failed endpoints are recorded, not fatal
//     - Returns structured data for backup or analysis
//
//  2. [LibraryEngine.BulkExport] : Export playlists to disk
//     - Fetches playlists under a rate limit
//     - Writes json, csv, markdown or txt files from a worker pool
//     - Writes a manifest summarizing successes and failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking; a slow or absent reader only loses updates.
package tasks

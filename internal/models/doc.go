// Package models defines the data transfer objects exchanged with the music API.
//
// The package contains three groups of types:
//
// 1. Identity:
//   - [User] : The signed-in account returned by /auth/me
//   - [Session] : Access token and user, always set together
//
// 2. Library:
//   - [Artist], [Album], [Track] : Catalog entries
//   - [Playlist], [PlaylistExport] : User playlists, optionally with their tracks
//   - [Page] : Generic limit/offset pagination envelope
//
// 3. Discovery:
//   - [DiscoveryResult] : Natural-language search results
//   - [Recommendation], [AgentStep] : Agent-driven recommendation runs
//   - [EmbeddingPoint] : One track projected into the 3D embedding space
//
// JSON tags follow the API's snake_case field names.
package models

// Package services defines the [Library] interface for the music backend and implements it over the
// authenticated request coordinator.
//
// # Library
//
// [LibraryService] maps each catalog and library endpoint to a typed call:
//   - /music/artists, /music/albums, /music/tracks : paginated catalog listings ([models.Page])
//   - /library/favorites : the signed-in user's favorite tracks
//   - /library/playlists : playlist CRUD and track membership
//   - /discover/search : natural-language discovery
//   - /agent/recommend : agent-driven recommendations, returned with the agent's steps
//   - /music/embeddings : the embedding-space point cloud
//   - /music/stream : raw audio bytes, returned as a [player.Source]
//
// Every call goes through client.Coordinator, so a 401 triggers the shared refresh and a single retry.
//
// # Error Handling
//
// Calls wrap the coordinator error with context; match with errors.Is:
//   - [shared.ErrNotFound] : 404 from the API
//   - [shared.ErrAPIRequest] : any other non-2xx
//   - [shared.ErrSessionExpired] : the refresh after a 401 failed and the session was ended
//   - [shared.ErrMissingArgument] : an empty id or query was passed
//
// # Raw Access
//
// [APIService] sends arbitrary GET/POST/DELETE requests and returns the raw [APIResponse], for `sonance api`.
package services

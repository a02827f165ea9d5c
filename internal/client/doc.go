// Package client implements the authenticated request path to the music API.
//
// # Coordinator
//
// [Coordinator.Do] sends a request with the session's bearer token and the shared cookie jar.
// When the API answers 401 on the first attempt the coordinator obtains a new access token and replays the request once.
//
// Refreshes are single-flight: the first caller to observe a 401 becomes the leader and starts the refresh,
// every other caller that observes a 401 while it is outstanding waits on the same result.
// The state machine is Idle → Refreshing → Idle, and it returns to Idle whether the refresh succeeds or fails.
//
// A failed refresh is terminal for the session. The leader calls [Session.Expire] exactly once and every waiter fails with [shared.ErrSessionExpired].
// A replayed request that fails again is returned to the caller unmodified; it never triggers a second refresh.
//
// # JSON Helpers
//
// [Coordinator.GetJSON], [Coordinator.PostJSON] and friends build requests against the base URL and decode
// non-2xx bodies of the form {"detail": "..."} into [APIError].
//
// # HTTP Client
//
// [NewHTTPClient] builds the [http.Client] shared by the coordinator and auth.Manager.
// Its cookie jar carries the refresh-token cookie, which application code never reads.
package client

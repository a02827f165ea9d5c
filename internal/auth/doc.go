// Package auth owns the signed-in session.
//
// [Manager] holds the access token and the user it was issued for, persists the token through a [TokenStore],
// and talks to the /auth endpoints directly (never through the request coordinator, so a refresh can not recurse).
// The refresh token is an HTTP cookie kept in the shared cookie jar; this package never reads it.
//
// The manager satisfies client.Session and player.TokenSource, and is an [oauth2.TokenSource].
//
// [oauth2.TokenSource]: https://pkg.go.dev/golang.org/x/oauth2#TokenSource
package auth

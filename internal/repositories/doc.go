// Package repositories implements SQLite persistence for the client's local state.
//
// The remote API owns every durable record except two independent keys:
//   - [KeyAccessToken] : The current access token, cleared on logout
//   - [KeyVolume] : The last volume level, kept regardless of auth state
//
// Key Implementations:
//   - [SettingsRepository] : Key/value rows in the settings table
//   - [MemorySettings] : In-process [Settings] for tests and ephemeral runs
//   - [Preferences] : Typed accessors over any [Settings] used by the auth manager and the player
package repositories

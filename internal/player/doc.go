// Package player implements the now-playing state machine.
//
// [Player] owns one [Element] for its lifetime and coordinates a linear queue with transport controls.
// Audio is not streamed from a URL: [Player.PlayTrack] fetches the whole track through a [Fetcher] with the
// session's bearer token and hands the in-memory [Source] to the element.
//
// Every PlayTrack bumps a generation counter and cancels the previous fetch.
// Only the result of the latest generation reaches the element; late results are released and dropped.
// The previous Source is released before a new one is loaded, and the last one at [Player.Close].
//
// # Queue
//
// The queue is an ordered track list with an index. The index is valid whenever the queue is non-empty.
// [Player.PlayNext] and [Player.PlayPrevious] only move within range. At the head of the queue,
// PlayPrevious restarts the current track once more than RestartThreshold has elapsed.
//
// When a track ends the player replays it (repeat on), advances to the next queue entry, or stops and
// keeps the finished track as current.
//
// # Events
//
// [Player.Subscribe] returns buffered channels of state, track, queue and error events.
// Sends never block; a slow subscriber misses events rather than stalling playback.
package player

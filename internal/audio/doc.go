// Package audio plays fetched tracks through the system speaker with beep.
//
// [Speaker] implements player.Element. Tracks arrive fully buffered in memory, so decoding reads from a
// bytes.Reader and the whole track is seekable. The decoder is chosen from the source's content type,
// falling back to sniffing the leading bytes.
//
// Builds without cgo on linux have no speaker backend; [New] then returns [shared.ErrAudioUnavailable].
package audio

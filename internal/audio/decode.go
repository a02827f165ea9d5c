package audio

import (
	"bytes"
	"fmt"
	"math"
	"mime"
	"strings"

	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Format is a supported container/codec.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatWAV     Format = "wav"
	FormatVorbis  Format = "vorbis"
)

var mediaTypes = map[string]Format{
	"audio/mpeg":   FormatMP3,
	"audio/mp3":    FormatMP3,
	"audio/flac":   FormatFLAC,
	"audio/x-flac": FormatFLAC,
	"audio/wav":    FormatWAV,
	"audio/wave":   FormatWAV,
	"audio/x-wav":  FormatWAV,
	"audio/ogg":    FormatVorbis,
	"audio/vorbis": FormatVorbis,
}

// Detect picks the format from the content type, or from magic bytes when the type is missing or generic.
func Detect(contentType string, data []byte) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := mediaTypes[strings.ToLower(mediaType)]; ok {
			return f
		}
	}

	switch {
	case bytes.HasPrefix(data, []byte("ID3")), len(data) > 1 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("RIFF")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatVorbis
	}
	return FormatUnknown
}

// Decode opens src for streaming.
func Decode(src *player.Source) (beep.StreamSeekCloser, beep.Format, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, beep.Format{}, fmt.Errorf("%w: empty audio source", shared.ErrInvalidInput)
	}

	r := nopCloser{bytes.NewReader(src.Data)}
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch f := Detect(src.ContentType, src.Data); f {
	case FormatMP3:
		streamer, format, err = mp3.Decode(r)
	case FormatFLAC:
		streamer, format, err = flac.Decode(r)
	case FormatWAV:
		streamer, format, err = wav.Decode(r)
	case FormatVorbis:
		streamer, format, err = vorbis.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: unsupported audio type %q", shared.ErrInvalidInput, src.ContentType)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", src.ID, err)
	}
	return streamer, format, nil
}

// levelToVolume maps a linear level onto effects.Volume's base-2 scale: 1 -> 0, 0.5 -> -1, 0 -> silent.
func levelToVolume(level float64) (volume float64, silent bool) {
	if level <= 0 {
		return -10, true
	}
	if level >= 1 {
		return 0, false
	}
	return math.Log2(level), false
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

package formatter

import (
	"fmt"
	"time"

	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/dustin/go-humanize"
)

// TotalLength sums track durations and renders them as m:ss or h:mm:ss.
func TotalLength(tracks []models.Track) string {
	total := 0
	for _, t := range tracks {
		total += t.DurationSeconds
	}
	return shared.FormatDuration(total)
}

// Clock renders a playhead position as m:ss.
func Clock(d time.Duration) string {
	return shared.FormatDuration(int(d / time.Second))
}

// Bytes renders a size such as "4.2 MB".
func Bytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Count renders an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Ago renders a timestamp relative to now, such as "3 days ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// Percent renders the volume level as a whole percentage.
func Percent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/player"
)

const (
	filledBlock = "▓"
	emptyBlock  = "░"
)

// renderNowPlaying draws the player bar: track line, then "▶  1:23  ▓▓▓░░░  4:56  vol 80%".
func renderNowPlaying(s player.State, width int) string {
	inner := max(width-4, 20)

	if s.CurrentTrack == nil {
		return styles.bar.Width(inner).Render(styles.help.Render("Nothing playing"))
	}

	title := truncate(s.CurrentTrack.String(), inner)
	if s.Duration == 0 {
		s.Duration = s.CurrentTrack.Duration()
	}

	suffix := "  vol " + formatter.Percent(s.Volume)
	if s.Loading {
		suffix = "  loading" + suffix
	}
	if s.IsRepeat {
		suffix += "  repeat"
	}
	if len(s.Queue) > 0 {
		suffix += fmt.Sprintf("  %d/%d", s.Index+1, len(s.Queue))
	}

	progress := renderProgressBar(s.CurrentTime, s.Duration, inner-lipgloss.Width(suffix), s.IsPlaying)
	return styles.bar.Width(inner).Render(title + "\n" + progress + suffix)
}

func renderProgressBar(position, duration time.Duration, width int, playing bool) string {
	status := "▶"
	if !playing {
		status = "⏸"
	}

	pos := formatter.Clock(position)
	dur := formatter.Clock(duration)

	fixed := lipgloss.Width(status) + 2 + lipgloss.Width(pos) + 2 + 2 + lipgloss.Width(dur)
	barWidth := width - fixed
	if barWidth < 3 {
		return status + "  " + pos + " / " + dur
	}

	var ratio float64
	if duration > 0 {
		ratio = float64(position) / float64(duration)
	}
	filled := min(max(int(float64(barWidth)*ratio), 0), barWidth)

	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, barWidth-filled)
	return status + "  " + pos + "  " + bar + "  " + dur
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

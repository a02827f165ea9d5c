package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play queues the given track ids and plays them without the TUI until the queue ends or ctx is cancelled.
//
// A track that cannot be fetched is reported and skipped. An expired session ends playback with
// [shared.ErrSessionExpired].
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: pass at least one track id", shared.ErrEmptyQueue)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	tracks := r.resolveTracks(ctx, ids)
	if len(tracks) == 0 {
		return fmt.Errorf("%w: none of the given tracks exist", shared.ErrNotFound)
	}

	p, err := r.playerInstance()
	if err != nil {
		return err
	}
	if cmd.IsSet("volume") {
		if err := p.SetVolume(cmd.Float("volume")); err != nil {
			r.logger.Warn("failed to set volume", "error", err)
		}
	}

	sub := p.Subscribe()
	defer p.Unsubscribe(sub)

	if err := p.PlayQueue(ctx, tracks, 0); err != nil {
		if errors.Is(err, shared.ErrSessionExpired) {
			return err
		}
		r.logger.Debug("first track failed", "error", err)
	}
	return r.followPlayback(ctx, p, sub)
}

// resolveTracks looks up each id, dropping the ones the API does not know.
func (r *Runner) resolveTracks(ctx context.Context, ids []string) []models.Track {
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		track, err := r.library.Track(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				r.writePlain("✗ %s: not found\n", id)
			} else {
				r.writePlain("✗ %s: %v\n", id, err)
			}
			continue
		}
		tracks = append(tracks, *track)
	}
	return tracks
}

// followPlayback prints track changes and errors until the last track ends.
func (r *Runner) followPlayback(ctx context.Context, p *player.Player, sub *player.Subscription) error {
	failed := 0
	for {
		select {
		case <-ctx.Done():
			p.Stop()
			return r.writePlainln("■ Stopped")
		case <-sub.Done:
			return player.ErrClosed
		case e := <-sub.TrackChanged:
			if e.Current != nil {
				s := p.State()
				r.writePlain("▶ [%d/%d] %s (%s)\n", s.Index+1, len(s.Queue), e.Current.String(), formatter.Clock(e.Current.Duration()))
			}
		case e := <-sub.Error:
			if errors.Is(e.Err, shared.ErrSessionExpired) {
				return e.Err
			}
			failed++
			r.writePlain("✗ %s: %v\n", e.TrackID, e.Err)
			if s := p.State(); s.Index+1 < len(s.Queue) {
				if err := p.PlayNext(ctx); err != nil {
					r.logger.Debug("skipped track failed", "error", err)
				}
			}
		case e := <-sub.StateChanged:
			if r.sessionExpired() {
				return shared.ErrSessionExpired
			}
			if !queueFinished(e.State) {
				continue
			}
			failed += drainErrors(r, sub)
			total := len(e.State.Queue)
			if failed == total {
				return fmt.Errorf("%w: no track could be played", shared.ErrServiceUnavailable)
			}
			return r.writePlainln("✓ Queue finished (%d/%d played)", total-failed, total)
		}
	}
}

func (r *Runner) sessionExpired() bool {
	return r.auth != nil && r.auth.Expired()
}

func queueFinished(s player.State) bool {
	return s.CurrentTrack != nil && !s.IsPlaying && !s.Loading && s.Index == len(s.Queue)-1
}

// drainErrors prints errors emitted alongside the final state change.
func drainErrors(r *Runner, sub *player.Subscription) int {
	n := 0
	for {
		select {
		case e := <-sub.Error:
			n++
			r.writePlain("✗ %s: %v\n", e.TrackID, e.Err)
		default:
			return n
		}
	}
}

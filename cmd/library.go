package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/services"
	"github.com/urfave/cli/v3"
)

func pageOpts(cmd *cli.Command) services.PageOpts {
	return services.PageOpts{Limit: int(cmd.Int("limit")), Offset: int(cmd.Int("offset"))}
}

// LibraryArtists lists one page of catalog artists.
func (r *Runner) LibraryArtists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	page, err := r.library.Artists(ctx, pageOpts(cmd))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	r.writePlainHeader("Artists")
	for _, a := range page.Items {
		r.writePlain("%-24s %s (%d albums)\n", a.ID, a.Name, a.AlbumCount)
	}
	return r.writePageFooter(page.Offset, len(page.Items), page.Total)
}

// LibraryArtist shows an artist and their albums.
func (r *Runner) LibraryArtist(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	artist, err := r.library.Artist(ctx, id)
	if err != nil {
		return err
	}
	albums, err := r.library.ArtistAlbums(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"artist": artist, "albums": albums}, true)
	}

	r.writePlainHeader(artist.Name)
	for _, g := range artist.Genres {
		r.writePlain("#%s ", g)
	}
	if len(artist.Genres) > 0 {
		r.writePlain("\n")
	}
	r.writePlainln("Albums (%d):", len(albums))
	for _, a := range albums {
		r.writePlain("  %-24s %s (%d)\n", a.ID, a.Title, a.Year)
	}
	return nil
}

// LibraryAlbums lists one page of catalog albums.
func (r *Runner) LibraryAlbums(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	page, err := r.library.Albums(ctx, pageOpts(cmd))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	r.writePlainHeader("Albums")
	for _, a := range page.Items {
		r.writePlain("%-24s %s - %s (%d tracks)\n", a.ID, a.ArtistName, a.Title, a.TrackCount)
	}
	return r.writePageFooter(page.Offset, len(page.Items), page.Total)
}

// LibraryAlbum shows an album with its track listing.
func (r *Runner) LibraryAlbum(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	album, err := r.library.Album(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(album, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", album.ArtistName, album.Title))
	r.writeTracks(album.Tracks)
	return r.writePlainln("Length: %s", formatter.TotalLength(album.Tracks))
}

// LibraryTracks lists tracks, optionally filtered by search text, artist or album.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	page, err := r.library.Tracks(ctx, services.TrackQuery{
		Search:   cmd.String("search"),
		ArtistID: cmd.String("artist"),
		AlbumID:  cmd.String("album"),
		PageOpts: pageOpts(cmd),
	})
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	r.writePlainHeader("Tracks")
	r.writeTracks(page.Items)
	return r.writePageFooter(page.Offset, len(page.Items), page.Total)
}

// FavoritesList prints the favorite tracks.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	tracks, err := r.library.Favorites(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader("Favorites")
	if len(tracks) == 0 {
		return r.writePlain("No favorites yet\n")
	}
	r.writeTracks(tracks)
	return r.writePlainln("%d tracks, %s", len(tracks), formatter.TotalLength(tracks))
}

// FavoritesAdd marks a track as favorite.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if err := r.library.AddFavorite(ctx, id); err != nil {
		return err
	}
	return r.writePlain("♥ Added %s to favorites\n", id)
}

// FavoritesRemove clears a track's favorite mark.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if err := r.library.RemoveFavorite(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from favorites\n", id)
}

func (r *Runner) writeTracks(tracks []models.Track) {
	for i, t := range tracks {
		mark := " "
		if t.Favorite {
			mark = "♥"
		}
		r.writePlain("%3d. %s %-24s %s [%s]\n", i+1, mark, t.ID, t.String(), formatter.Clock(t.Duration()))
	}
}

func (r *Runner) writePageFooter(offset, n, total int) error {
	if n == 0 {
		return r.writePlain("Nothing here\n")
	}
	return r.writePlainln("Showing %d-%d of %s", offset+1, offset+n, formatter.Count(total))
}

// Package fetcher drives catalog extraction: it searches Spotify for
// Japanese-music playlists, stages their tracks in the bronze layer, and then
// stages full records for every artist those tracks surfaced.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/spotify"
)

// playlistSearchTerms seed the crawl. Each term contributes its top search
// hits; overlap between terms is deduplicated by track id.
var playlistSearchTerms = []string{
	"Japan Top",
	"J-Pop",
	"Japanese Music",
	"City Pop",
	"Tokyo Hits",
	"Anime Music",
}

const playlistsPerTerm = 5

type Fetcher struct {
	db  *db.DB
	spo *spotify.Client
}

func New(db *db.DB, spo *spotify.Client) *Fetcher {
	return &Fetcher{
		db:  db,
		spo: spo,
	}
}

// Run performs one full extraction pass. Tracks and artists are upserted as
// they arrive, so an interrupted pass keeps what it staged.
func (f *Fetcher) Run(ctx context.Context) error {
	playlists, err := f.findPlaylists(ctx)
	if err != nil {
		return err
	}
	log.Printf("found %d playlists to process", len(playlists))

	artistIDs, trackCount, err := f.stageTracks(ctx, playlists)
	if err != nil {
		return err
	}
	log.Printf("staged %d tracks from %d playlists", trackCount, len(playlists))

	japanese, err := f.stageArtists(ctx, artistIDs)
	if err != nil {
		return err
	}
	log.Printf("staged %d artists (%d japanese)", len(artistIDs), japanese)

	return nil
}

func (f *Fetcher) findPlaylists(ctx context.Context) ([]spotify.Playlist, error) {
	var playlists []spotify.Playlist
	seen := map[string]struct{}{}

	for _, term := range playlistSearchTerms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := f.spo.SearchPlaylists(ctx, term, playlistsPerTerm)
		if err != nil {
			return nil, fmt.Errorf("error searching playlists for '%s': %w", term, err)
		}
		for _, playlist := range found {
			if _, ok := seen[playlist.SpotifyID]; ok {
				continue
			}
			seen[playlist.SpotifyID] = struct{}{}
			playlists = append(playlists, playlist)
		}
	}

	return playlists, nil
}

// stageTracks fetches and upserts every playlist's tracks, returning the set
// of primary-artist ids in first-seen order.
func (f *Fetcher) stageTracks(ctx context.Context, playlists []spotify.Playlist) ([]string, int, error) {
	loadedAt := time.Now()
	seenTracks := map[string]struct{}{}
	seenArtists := map[string]struct{}{}
	var artistIDs []string
	trackCount := 0

	for _, playlist := range playlists {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		tracks, err := f.spo.FetchPlaylistTracks(ctx, playlist)
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching tracks for playlist '%s': %w", playlist.Name, err)
		}

		for i := range tracks {
			track := &tracks[i]
			if _, ok := seenTracks[track.TrackID]; ok {
				continue
			}
			seenTracks[track.TrackID] = struct{}{}

			track.LoadedAt = loadedAt
			if err := f.db.UpsertTrack(track); err != nil {
				return nil, 0, err
			}
			trackCount++

			if track.ArtistID == "" {
				continue
			}
			if _, ok := seenArtists[track.ArtistID]; !ok {
				seenArtists[track.ArtistID] = struct{}{}
				artistIDs = append(artistIDs, track.ArtistID)
			}
		}

		log.Printf("%s: %d tracks", playlist.Name, len(tracks))
	}

	return artistIDs, trackCount, nil
}

// stageArtists fetches full artist records in batches of fifty, flags the
// Japanese ones, and upserts them. It returns how many were flagged.
func (f *Fetcher) stageArtists(ctx context.Context, artistIDs []string) (int, error) {
	loadedAt := time.Now()
	japanese := 0

	for start := 0; start < len(artistIDs); start += 50 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		end := start + 50
		if end > len(artistIDs) {
			end = len(artistIDs)
		}

		artists, err := f.spo.FetchArtists(ctx, artistIDs[start:end])
		if err != nil {
			return 0, fmt.Errorf("error fetching artists: %w", err)
		}

		for i := range artists {
			artist := &artists[i]
			artist.LoadedAt = loadedAt
			artist.IsJapanese = isJapaneseArtist(artist)
			if artist.IsJapanese {
				japanese++
			}
			if err := f.db.UpsertArtist(artist); err != nil {
				return 0, err
			}
		}
	}

	return japanese, nil
}

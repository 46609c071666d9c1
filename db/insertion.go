package db

import (
	"fmt"

	"github.com/ayasuda/jmusic/data"
	"gorm.io/gorm/clause"
)

// UpsertTrack, given a Track, inserts it into the bronze_tracks table,
// replacing any previous extraction of the same track.
func (db *DB) UpsertTrack(track *data.Track) error {
	if err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "track_id"}},
			UpdateAll: true,
		}).
		Create(track).
		Error; err != nil {
		return fmt.Errorf("error upserting track '%s': %w", track.Name, err)
	}
	return nil
}

// UpsertArtist, given an Artist, inserts it into the bronze_artists table,
// replacing any previous extraction of the same artist.
func (db *DB) UpsertArtist(artist *data.Artist) error {
	if err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "artist_id"}},
			UpdateAll: true,
		}).
		Create(artist).
		Error; err != nil {
		return fmt.Errorf("error upserting artist '%s': %w", artist.Name, err)
	}
	return nil
}

// InsertFeature inserts a feature row keyed by (track_id, mbid), doing
// nothing if the pair is already present. Feature rows are written once and
// never mutated.
func (db *DB) InsertFeature(feature *data.Feature) error {
	if err := db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(feature).
		Error; err != nil {
		return fmt.Errorf("error inserting features for track '%s' recording '%s': %w",
			feature.TrackID, feature.MBID, err)
	}
	return nil
}

// SaveResolution records the outcome of resolving one ISRC, overwriting any
// previous outcome for the same code. Only the enricher calls this.
func (db *DB) SaveResolution(resolution *data.Resolution) error {
	if err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "isrc"}},
			UpdateAll: true,
		}).
		Create(resolution).
		Error; err != nil {
		return fmt.Errorf("error saving resolution for isrc '%s': %w", resolution.ISRC, err)
	}
	return nil
}

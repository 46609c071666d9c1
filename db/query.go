package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ayasuda/jmusic/data"
	"gorm.io/gorm"
)

// TracksToEnrich returns every track that has an ISRC, most popular first, so
// that an interrupted run has already covered the most impactful records.
func (db *DB) TracksToEnrich() ([]data.Track, error) {
	tracks := []data.Track{}
	if err := db.
		Where("isrc is not null and isrc != ''").
		Order("popularity desc").
		Find(&tracks).
		Error; err != nil {
		return nil, fmt.Errorf("error getting tracks to enrich: %w", err)
	}
	return tracks, nil
}

// GetResolution returns the persisted outcome for an ISRC, or nil if the code
// has never been resolved.
func (db *DB) GetResolution(isrc string) (*data.Resolution, error) {
	var resolution data.Resolution
	if err := db.
		Where("isrc = ?", isrc).
		First(&resolution).
		Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting resolution for isrc '%s': %w", isrc, err)
	}
	return &resolution, nil
}

// An EnrichedTrack joins a track's display fields with its audio features,
// for the dashboard and the query tool.
type EnrichedTrack struct {
	Name       string `gorm:"column:track_name"`
	ArtistName string
	Popularity int64

	Tempo        float64
	Danceability float64
	Key          string `gorm:"column:key_key"`
	Scale        string `gorm:"column:key_scale"`
}

// TopEnrichedTracks returns the most popular tracks that have audio features.
func (db *DB) TopEnrichedTracks(limit int) ([]EnrichedTrack, error) {
	tracks := []EnrichedTrack{}
	if err := db.
		Table("bronze_tracks").
		Select("bronze_tracks.track_name, bronze_tracks.artist_name, bronze_tracks.popularity, "+
			"f.tempo, f.danceability, f.key_key, f.key_scale").
		Joins("join bronze_acousticbrainz_features f on f.track_id = bronze_tracks.track_id").
		Order("bronze_tracks.popularity desc").
		Limit(limit).
		Scan(&tracks).
		Error; err != nil {
		return nil, fmt.Errorf("error getting top enriched tracks: %w", err)
	}
	return tracks, nil
}

// FeatureAverages summarizes the feature table for the dashboard.
type FeatureAverages struct {
	Count        int64
	Tempo        float64
	Danceability float64
	LoudnessMean float64
}

func (db *DB) GetFeatureAverages() (FeatureAverages, error) {
	var averages FeatureAverages
	if err := db.
		Table("bronze_acousticbrainz_features").
		Select("count(*) as count, " +
			"coalesce(avg(tempo), 0) as tempo, " +
			"coalesce(avg(danceability), 0) as danceability, " +
			"coalesce(avg(loudness_mean), 0) as loudness_mean").
		Scan(&averages).
		Error; err != nil {
		return averages, fmt.Errorf("error averaging features: %w", err)
	}
	return averages, nil
}

// Query runs an ad-hoc SQL statement and returns column names plus stringified
// rows. It backs the `jmusic query` command; results are read straight out of
// the bronze tables.
func (db *DB) Query(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading columns: %w", err)
	}

	var results [][]string
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("canceled: %w", err)
		}

		values := make([]sql.NullString, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("error scanning row: %w", err)
		}

		row := make([]string, len(columns))
		for i, value := range values {
			if value.Valid {
				row[i] = value.String
			} else {
				row[i] = "null"
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return columns, results, nil
}

package db

import "fmt"

func (db *DB) CountTracks() (int, error) {
	var count int64
	if err := db.
		Table("bronze_tracks").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting tracks: %w", err)
	}
	return int(count), nil
}

func (db *DB) CountTracksWithISRC() (int, error) {
	var count int64
	if err := db.
		Table("bronze_tracks").
		Where("isrc is not null and isrc != ''").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting tracks with an isrc: %w", err)
	}
	return int(count), nil
}

func (db *DB) CountArtists() (int, error) {
	var count int64
	if err := db.
		Table("bronze_artists").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting artists: %w", err)
	}
	return int(count), nil
}

func (db *DB) CountJapaneseArtists() (int, error) {
	var count int64
	if err := db.
		Table("bronze_artists").
		Where("is_japanese = true").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting japanese artists: %w", err)
	}
	return int(count), nil
}

// CountEnrichedTracks counts tracks with at least one feature row.
func (db *DB) CountEnrichedTracks() (int, error) {
	var count int64
	if err := db.
		Table("bronze_acousticbrainz_features").
		Distinct("track_id").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting enriched tracks: %w", err)
	}
	return int(count), nil
}

// CountResolutionsByStatus returns how many ISRC lookups ended in each
// outcome status.
func (db *DB) CountResolutionsByStatus() (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	if err := db.
		Table("bronze_isrc_mbid_mapping").
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).
		Error; err != nil {
		return nil, fmt.Errorf("error counting resolutions: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// An Overview gathers the dashboard's headline numbers.
type Overview struct {
	Tracks          int
	TracksWithISRC  int
	Artists         int
	JapaneseArtists int
	EnrichedTracks  int
	Resolutions     map[string]int
}

func (db *DB) GetOverview() (Overview, error) {
	overview := Overview{}
	var err error

	if overview.Tracks, err = db.CountTracks(); err != nil {
		return overview, err
	}
	if overview.TracksWithISRC, err = db.CountTracksWithISRC(); err != nil {
		return overview, err
	}
	if overview.Artists, err = db.CountArtists(); err != nil {
		return overview, err
	}
	if overview.JapaneseArtists, err = db.CountJapaneseArtists(); err != nil {
		return overview, err
	}
	if overview.EnrichedTracks, err = db.CountEnrichedTracks(); err != nil {
		return overview, err
	}
	if overview.Resolutions, err = db.CountResolutionsByStatus(); err != nil {
		return overview, err
	}

	return overview, nil
}

package data

import "time"

// Track holds one row of the bronze_tracks table: a track as the catalog
// extraction found it, before any enrichment.
//
// The ISRC is the join key into the recording-lookup service. Spotify doesn't
// have one for every track, so it can be empty; tracks without one can never
// be enriched.
type Track struct {
	// like "3yHyiUDJdzs1FR0Ab4gVNk"
	TrackID string `gorm:"primaryKey"`

	Name       string `gorm:"column:track_name"`
	ArtistID   string
	ArtistName string

	AlbumName            string
	AlbumType            string
	ReleaseDate          string
	ReleaseDatePrecision string

	Popularity int64
	DurationMS int64 `gorm:"column:duration_ms"`
	Explicit   bool
	SpotifyURL string

	// like "JPU011700801"
	ISRC string `gorm:"column:isrc"`

	// the playlist whose crawl surfaced this track
	SourcePlaylist string

	LoadedAt time.Time

	// the upstream payload, verbatim
	RawJSON string `gorm:"column:raw_json"`
}

func (Track) TableName() string { return "bronze_tracks" }

package data

import "time"

// Artist holds one row of the bronze_artists table.
//
// IsJapanese is derived at extraction time from the artist's name and genre
// tags; the dashboard and downstream layers filter on it.
type Artist struct {
	// like "6qBFCsfRf8kZTNTjxbT3Dl"
	ArtistID string `gorm:"primaryKey"`

	Name string `gorm:"column:artist_name"`

	// like ["j-pop", "city pop"]
	Genres []string `gorm:"serializer:json"`

	Popularity int64
	Followers  int64 `gorm:"column:followers_total"`

	SpotifyURL string
	ImageURL   string

	IsJapanese bool

	LoadedAt time.Time

	RawJSON string `gorm:"column:raw_json"`
}

func (Artist) TableName() string { return "bronze_artists" }

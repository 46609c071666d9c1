package data

import "time"

// Feature holds one row of the bronze_acousticbrainz_features table: the
// audio characteristics of one (track, recording) pair.
//
// The key is composite because one track's ISRC can resolve to several
// recordings; in practice the enricher stops at the first recording that has
// data, so normally one row exists per track. Rows are written once and never
// mutated.
type Feature struct {
	TrackID string `gorm:"primaryKey"`

	// the recording the features belong to
	MBID string `gorm:"column:mbid;primaryKey"`

	ISRC string `gorm:"column:isrc"`

	// beats per minute; 0 when upstream doesn't know
	Tempo float64

	BPMHistogramFirstPeak  float64 `gorm:"column:bpm_histogram_first_peak"`
	BPMHistogramSecondPeak float64 `gorm:"column:bpm_histogram_second_peak"`

	// upstream convention is roughly 0-3, not normalized to 0-1
	Danceability float64

	OnsetRate float64

	// dB-like scale, usually negative
	LoudnessMean float64

	DynamicComplexity float64

	// note name like "C#", or "unknown"
	Key string `gorm:"column:key_key"`

	// "major", "minor", or "unknown"
	Scale string `gorm:"column:key_scale"`

	LoadedAt time.Time

	// the upstream payload, verbatim, kept for future re-derivation
	RawJSON string `gorm:"column:raw_json"`
}

func (Feature) TableName() string { return "bronze_acousticbrainz_features" }

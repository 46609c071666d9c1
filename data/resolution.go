package data

import (
	"database/sql"
	"time"
)

// Resolution outcome statuses. Exactly one of these is persisted per ISRC.
const (
	// StatusSuccess means a recording matched and a Feature row exists.
	StatusSuccess = "success"

	// StatusNotFound means the lookup service authoritatively had no
	// recording for the ISRC. Terminal; never retried.
	StatusNotFound = "not_found"

	// StatusError means the lookup call itself failed. Unlike not_found
	// this reflects a possibly-transient fault; `enrich -retry-errors`
	// re-attempts these rows.
	StatusError = "error"

	// StatusNoFeatureData means recordings matched but none of them had
	// retrievable features.
	StatusNoFeatureData = "no_feature_data"
)

// Resolution holds one row of the bronze_isrc_mbid_mapping table: the
// persisted outcome of resolving one ISRC. Its existence is what makes an
// enrichment run resumable; only the enricher writes it.
type Resolution struct {
	// like "JPU011700801"
	ISRC string `gorm:"column:isrc;primaryKey"`

	// the matched recording, when there is one
	MBID sql.NullString `gorm:"column:mbid"`

	// display names carried along for diagnostics
	TrackName  string
	ArtistName string

	// one of the Status constants above
	Status string

	LookedUpAt time.Time
}

func (Resolution) TableName() string { return "bronze_isrc_mbid_mapping" }

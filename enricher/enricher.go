// Package enricher links staged tracks to external audio features.
//
// For each track with an ISRC it resolves the code to candidate recordings,
// then tries the candidates in order until one yields a feature record. The
// outcome of every resolution is persisted immediately, keyed by ISRC, so a
// run can be interrupted and resumed without repeating completed lookups.
//
// Execution is fully sequential. The lookup provider's quota is small enough
// that concurrency would only cause cascading errors; throughput is traded
// for deterministic quota usage.
package enricher

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ayasuda/jmusic/data"
	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/musicbrainz"
)

// A Resolver maps an ISRC to candidate recordings. A nil error with no
// candidates means the code authoritatively has no match.
type Resolver interface {
	Resolve(ctx context.Context, isrc string) ([]musicbrainz.Candidate, error)
}

// A FeatureSource maps a recording id to its audio features, or to nil when
// none exist. Errors are treated the same as absence.
type FeatureSource interface {
	Fetch(ctx context.Context, mbid string) (*data.Feature, error)
}

// New creates an Enricher over the given staging store and lookup services.
func New(db *db.DB, resolver Resolver, features FeatureSource) *Enricher {
	return &Enricher{
		db:       db,
		resolver: resolver,
		features: features,
	}
}

type Enricher struct {
	db       *db.DB
	resolver Resolver
	features FeatureSource

	// RetryErrors makes persisted error outcomes non-blocking, so this run
	// re-attempts lookups that previously failed. Off by default:
	// historically an error row blocks reprocessing exactly like
	// not_found, and operators opt in to retrying instead.
	RetryErrors bool
}

// A Summary reports what one run did. Zero successes is an expected outcome:
// the feature service stopped collecting in 2022, so newer catalogs may not
// match at all.
type Summary struct {
	Eligible      int
	Processed     int
	Skipped       int
	Success       int
	NotFound      int
	NoFeatureData int
	Errors        int
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tracks with an isrc:  %6d\n", s.Eligible)
	fmt.Fprintf(&b, "already resolved:     %6d\n", s.Skipped)
	fmt.Fprintf(&b, "processed:            %6d\n", s.Processed)
	fmt.Fprintf(&b, "  success:            %6d\n", s.Success)
	fmt.Fprintf(&b, "  not found:          %6d\n", s.NotFound)
	fmt.Fprintf(&b, "  no feature data:    %6d\n", s.NoFeatureData)
	fmt.Fprintf(&b, "  errors:             %6d", s.Errors)
	if s.Processed > 0 && s.Success == 0 {
		fmt.Fprintf(&b, "\nno matches is expected for catalogs newer than 2022: "+
			"the feature service no longer collects data")
	}
	return b.String()
}

// Run enriches every eligible track, most popular first. One track's failure
// never aborts the run; the only fatal conditions are store failures and
// cancellation. The summary covers whatever completed either way.
func (e *Enricher) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	tracks, err := e.db.TracksToEnrich()
	if err != nil {
		return summary, err
	}
	summary.Eligible = len(tracks)
	log.Printf("%d tracks have an isrc", len(tracks))

	for i := range tracks {
		track := &tracks[i]

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		resolution, err := e.db.GetResolution(track.ISRC)
		if err != nil {
			return summary, err
		}
		if resolution != nil && !(e.RetryErrors && resolution.Status == data.StatusError) {
			summary.Skipped++
			continue
		}

		status, err := e.enrichTrack(ctx, track)
		if err != nil {
			return summary, err
		}

		summary.Processed++
		switch status {
		case data.StatusSuccess:
			summary.Success++
		case data.StatusNotFound:
			summary.NotFound++
		case data.StatusNoFeatureData:
			summary.NoFeatureData++
		case data.StatusError:
			summary.Errors++
		}

		if summary.Processed%10 == 0 {
			log.Printf("progress: %d/%d processed, %d success, %d not found, %d errors",
				summary.Processed, len(tracks)-summary.Skipped,
				summary.Success, summary.NotFound, summary.Errors)
		}
	}

	return summary, nil
}

// enrichTrack runs the resolution chain for one track and persists its
// outcome. The returned error is non-nil only for fatal conditions
// (cancellation, store failure); lookup failures become a persisted error
// outcome instead.
func (e *Enricher) enrichTrack(ctx context.Context, track *data.Track) (string, error) {
	candidates, err := e.resolver.Resolve(ctx, track.ISRC)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("lookup error for isrc '%s' ('%s'): %s", track.ISRC, track.Name, err)
		return data.StatusError, e.saveOutcome(track, data.StatusError, "")
	}

	if len(candidates) == 0 {
		return data.StatusNotFound, e.saveOutcome(track, data.StatusNotFound, "")
	}

	// first match wins: candidates arrive in the service's relevance
	// order, and we stop at the first one with retrievable features.
	for _, candidate := range candidates {
		feature, err := e.features.Fetch(ctx, candidate.MBID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("feature fetch error for recording '%s' (isrc '%s'): %s",
				candidate.MBID, track.ISRC, err)
			continue
		}
		if feature == nil {
			continue
		}

		feature.TrackID = track.TrackID
		feature.ISRC = track.ISRC
		feature.LoadedAt = time.Now()
		if err := e.db.InsertFeature(feature); err != nil {
			return "", err
		}

		log.Printf("found features for '%s': %.1f bpm, danceability %.2f, %s %s",
			track.Name, feature.Tempo, feature.Danceability, feature.Key, feature.Scale)
		return data.StatusSuccess, e.saveOutcome(track, data.StatusSuccess, candidate.MBID)
	}

	// every candidate was tried; record the first as a reference point
	return data.StatusNoFeatureData, e.saveOutcome(track, data.StatusNoFeatureData, candidates[0].MBID)
}

func (e *Enricher) saveOutcome(track *data.Track, status, mbid string) error {
	resolution := &data.Resolution{
		ISRC:       track.ISRC,
		TrackName:  track.Name,
		ArtistName: track.ArtistName,
		Status:     status,
		LookedUpAt: time.Now(),
	}
	if mbid != "" {
		resolution.MBID = sql.NullString{String: mbid, Valid: true}
	}
	return e.db.SaveResolution(resolution)
}

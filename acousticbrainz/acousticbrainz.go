// Package acousticbrainz fetches precomputed audio features for a recording
// from the AcousticBrainz low-level API.
//
// AcousticBrainz stopped collecting submissions in 2022, so recordings
// released after that will not have data. That is expected, not an error.
package acousticbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ayasuda/jmusic/data"
	"github.com/ayasuda/jmusic/request"
)

const defaultBaseURL = "https://acousticbrainz.org"

// A Pacer spaces out requests. Fetch waits on it before every call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// New creates an AcousticBrainz client that paces its requests with the given
// pacer.
func New(pacer Pacer) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		pacer:   pacer,
		BaseURL: defaultBaseURL,
	}
}

type Client struct {
	http  *http.Client
	pacer Pacer

	// BaseURL is overridable for tests.
	BaseURL string
}

// Fetch returns the audio features recorded for one MBID, or (nil, nil) when
// the service has none. Callers treat an error the same as absence; the
// distinction only matters for logging.
//
// The returned Feature carries the recording's MBID and the feature fields;
// the caller fills in which track and ISRC it was fetched for.
func (ab *Client) Fetch(ctx context.Context, mbid string) (*data.Feature, error) {
	if mbid == "" {
		return nil, fmt.Errorf("empty mbid")
	}

	if err := ab.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/v1/%s/low-level", ab.BaseURL, mbid)

	var payload lowLevelPayload
	body, err := request.GetJSON(ctx, ab.http, u, nil, &payload)
	if errors.Is(err, request.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("feature fetch error for '%s': %w", mbid, err)
	}

	return &data.Feature{
		MBID: mbid,

		Tempo:                  payload.tempo(),
		BPMHistogramFirstPeak:  payload.bpmFirstPeak(),
		BPMHistogramSecondPeak: payload.bpmSecondPeak(),
		Danceability:           payload.danceability(),
		OnsetRate:              payload.onsetRate(),
		LoudnessMean:           payload.loudnessMean(),
		DynamicComplexity:      payload.dynamicComplexity(),
		Key:                    payload.key(),
		Scale:                  payload.scale(),

		RawJSON: string(body),
	}, nil
}

// lowLevelPayload is the subset of the nested upstream document we read.
// Every level is optional upstream; each accessor below documents its
// default.
type lowLevelPayload struct {
	Rhythm struct {
		BPM                   float64 `json:"bpm"`
		Danceability          float64 `json:"danceability"`
		OnsetRate             float64 `json:"onset_rate"`
		BPMHistogramFirstPeak struct {
			Mean float64 `json:"mean"`
		} `json:"bpm_histogram_first_peak_bpm"`
		BPMHistogramSecondPeak struct {
			Mean float64 `json:"mean"`
		} `json:"bpm_histogram_second_peak_bpm"`
	} `json:"rhythm"`

	Tonal struct {
		KeyKey   string `json:"key_key"`
		KeyScale string `json:"key_scale"`
	} `json:"tonal"`

	LowLevel struct {
		DynamicComplexity float64 `json:"dynamic_complexity"`
		Loudness          struct {
			Mean float64 `json:"mean"`
		} `json:"loudness"`
	} `json:"lowlevel"`
}

// tempo is the rhythm bpm; 0 when missing.
func (p *lowLevelPayload) tempo() float64 { return p.Rhythm.BPM }

// bpmFirstPeak is the mean of the first bpm-histogram peak; 0 when missing.
func (p *lowLevelPayload) bpmFirstPeak() float64 { return p.Rhythm.BPMHistogramFirstPeak.Mean }

// bpmSecondPeak is the mean of the second bpm-histogram peak; 0 when missing.
func (p *lowLevelPayload) bpmSecondPeak() float64 { return p.Rhythm.BPMHistogramSecondPeak.Mean }

// danceability is on the upstream 0-3 scale; 0 when missing.
func (p *lowLevelPayload) danceability() float64 { return p.Rhythm.Danceability }

// onsetRate is onsets per second; 0 when missing.
func (p *lowLevelPayload) onsetRate() float64 { return p.Rhythm.OnsetRate }

// loudnessMean is on a dB-like scale and usually negative; 0 when missing.
func (p *lowLevelPayload) loudnessMean() float64 { return p.LowLevel.Loudness.Mean }

// dynamicComplexity is 0 when missing.
func (p *lowLevelPayload) dynamicComplexity() float64 { return p.LowLevel.DynamicComplexity }

// key is a note name like "C#"; "unknown" when missing.
func (p *lowLevelPayload) key() string {
	if p.Tonal.KeyKey == "" {
		return "unknown"
	}
	return p.Tonal.KeyKey
}

// scale is "major" or "minor"; "unknown" when missing.
func (p *lowLevelPayload) scale() string {
	if p.Tonal.KeyScale == "" {
		return "unknown"
	}
	return p.Tonal.KeyScale
}

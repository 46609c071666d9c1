package acousticbrainz_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayasuda/jmusic/acousticbrainz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error { return ctx.Err() }

func newClient(t *testing.T, handler http.HandlerFunc) *acousticbrainz.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := acousticbrainz.New(noPacer{})
	client.BaseURL = srv.URL
	return client
}

const fullPayload = `{
	"rhythm": {
		"bpm": 128.0,
		"danceability": 1.2,
		"onset_rate": 3.4,
		"bpm_histogram_first_peak_bpm": {"mean": 127.5},
		"bpm_histogram_second_peak_bpm": {"mean": 64.0}
	},
	"tonal": {"key_key": "C#", "key_scale": "major"},
	"lowlevel": {
		"dynamic_complexity": 4.3,
		"loudness": {"mean": -12.5}
	}
}`

func TestFetch(t *testing.T) {
	var gotPath string
	client := newClient(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		fmt.Fprint(w, fullPayload)
	})

	feature, err := client.Fetch(context.Background(), "mbid-1")
	require.NoError(t, err)
	require.NotNil(t, feature)

	assert.Equal(t, "/api/v1/mbid-1/low-level", gotPath)
	assert.Equal(t, "mbid-1", feature.MBID)
	assert.Equal(t, 128.0, feature.Tempo)
	assert.Equal(t, 127.5, feature.BPMHistogramFirstPeak)
	assert.Equal(t, 64.0, feature.BPMHistogramSecondPeak)
	assert.Equal(t, 1.2, feature.Danceability)
	assert.Equal(t, 3.4, feature.OnsetRate)
	assert.Equal(t, -12.5, feature.LoudnessMean)
	assert.Equal(t, 4.3, feature.DynamicComplexity)
	assert.Equal(t, "C#", feature.Key)
	assert.Equal(t, "major", feature.Scale)

	// the upstream payload is retained verbatim
	assert.Equal(t, fullPayload, feature.RawJSON)
}

func TestFetchDefaults(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	feature, err := client.Fetch(context.Background(), "mbid-1")
	require.NoError(t, err)
	require.NotNil(t, feature)

	assert.Zero(t, feature.Tempo)
	assert.Zero(t, feature.Danceability)
	assert.Zero(t, feature.LoudnessMean)
	assert.Equal(t, "unknown", feature.Key)
	assert.Equal(t, "unknown", feature.Scale)
}

func TestFetchAbsent(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"message": "Not found"}`, http.StatusNotFound)
	})

	feature, err := client.Fetch(context.Background(), "mbid-1")
	require.NoError(t, err)
	assert.Nil(t, feature)
}

func TestFetchServiceError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := client.Fetch(context.Background(), "mbid-1")
	assert.Error(t, err)
}

func TestFetchMalformedPayload(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	_, err := client.Fetch(context.Background(), "mbid-1")
	assert.Error(t, err)
}

func TestFetchEmptyMBID(t *testing.T) {
	client := acousticbrainz.New(noPacer{})
	_, err := client.Fetch(context.Background(), "")
	assert.Error(t, err)
}

package enricher_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayasuda/jmusic/data"
	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/enricher"
	"github.com/ayasuda/jmusic/musicbrainz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	calls      []string
	candidates map[string][]musicbrainz.Candidate
	errs       map[string]error
}

func (r *fakeResolver) Resolve(ctx context.Context, isrc string) ([]musicbrainz.Candidate, error) {
	r.calls = append(r.calls, isrc)
	if err := r.errs[isrc]; err != nil {
		return nil, err
	}
	return r.candidates[isrc], nil
}

type fakeFeatures struct {
	calls []string
	feats map[string]*data.Feature
	errs  map[string]error
}

func (f *fakeFeatures) Fetch(ctx context.Context, mbid string) (*data.Feature, error) {
	f.calls = append(f.calls, mbid)
	if err := f.errs[mbid]; err != nil {
		return nil, err
	}
	feat := f.feats[mbid]
	if feat == nil {
		return nil, nil
	}
	copied := *feat
	return &copied, nil
}

func openDB(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTrack(t *testing.T, store *db.DB, id, name, isrc string, popularity int64) {
	t.Helper()
	require.NoError(t, store.UpsertTrack(&data.Track{
		TrackID:    id,
		Name:       name,
		ArtistName: "Artist " + id,
		ISRC:       isrc,
		Popularity: popularity,
	}))
}

func candidates(mbids ...string) []musicbrainz.Candidate {
	out := make([]musicbrainz.Candidate, len(mbids))
	for i, mbid := range mbids {
		out[i] = musicbrainz.Candidate{MBID: mbid, Title: "Title " + mbid}
	}
	return out
}

func TestSuccess(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-1"),
	}}
	features := &fakeFeatures{feats: map[string]*data.Feature{
		"mbid-1": {MBID: "mbid-1", Tempo: 128.0, Danceability: 1.2, Key: "C#", Scale: "major"},
	}}

	enr := enricher.New(store, resolver, features)
	summary, err := enr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Eligible)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Success)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	require.NotNil(t, resolution)
	assert.Equal(t, data.StatusSuccess, resolution.Status)
	assert.Equal(t, "mbid-1", resolution.MBID.String)
	assert.Equal(t, "Track A", resolution.TrackName)

	var feature data.Feature
	require.NoError(t, store.Where("track_id = ?", "t1").First(&feature).Error)
	assert.Equal(t, "mbid-1", feature.MBID)
	assert.Equal(t, "JPU01700001", feature.ISRC)
	assert.Equal(t, 128.0, feature.Tempo)
	assert.Equal(t, "C#", feature.Key)
	assert.False(t, feature.LoadedAt.IsZero())
}

func TestFirstMatchWins(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-a", "mbid-b", "mbid-c"),
	}}
	// only the second candidate has features
	features := &fakeFeatures{feats: map[string]*data.Feature{
		"mbid-b": {MBID: "mbid-b", Tempo: 100},
	}}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)

	// a was tried and missed, b matched, c was never reached
	assert.Equal(t, []string{"mbid-a", "mbid-b"}, features.calls)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, "mbid-b", resolution.MBID.String)
}

func TestExhaustion(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-a", "mbid-b"),
	}}
	features := &fakeFeatures{}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NoFeatureData)
	assert.Equal(t, []string{"mbid-a", "mbid-b"}, features.calls)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, data.StatusNoFeatureData, resolution.Status)
	// the first candidate is kept as a reference point
	assert.Equal(t, "mbid-a", resolution.MBID.String)
}

func TestEmptyCodeSkip(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "", 50)

	resolver := &fakeResolver{}
	features := &fakeFeatures{}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Eligible)
	assert.Empty(t, resolver.calls)

	var count int64
	require.NoError(t, store.Table("bronze_isrc_mbid_mapping").Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotFoundShortCircuit(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{}
	features := &fakeFeatures{}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotFound)
	assert.Empty(t, features.calls)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, data.StatusNotFound, resolution.Status)
	assert.False(t, resolution.MBID.Valid)
}

func TestResolverError(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{errs: map[string]error{
		"JPU01700001": errors.New("service unavailable"),
	}}
	features := &fakeFeatures{}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Empty(t, features.calls)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, data.StatusError, resolution.Status)
}

func TestFetchErrorTreatedAsAbsent(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-a", "mbid-b"),
	}}
	features := &fakeFeatures{
		errs:  map[string]error{"mbid-a": errors.New("timeout")},
		feats: map[string]*data.Feature{"mbid-b": {MBID: "mbid-b", Tempo: 90}},
	}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, "mbid-b", resolution.MBID.String)
}

func TestIdempotence(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	resolver := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-1"),
	}}
	features := &fakeFeatures{feats: map[string]*data.Feature{
		"mbid-1": {MBID: "mbid-1", Tempo: 128},
	}}

	_, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)

	// a second run over the same store issues no lookups at all
	secondResolver := &fakeResolver{}
	secondFeatures := &fakeFeatures{}
	summary, err := enricher.New(store, secondResolver, secondFeatures).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, secondResolver.calls)
	assert.Empty(t, secondFeatures.calls)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, data.StatusSuccess, resolution.Status)
	assert.Equal(t, "mbid-1", resolution.MBID.String)
}

func TestErrorOutcomeBlocksByDefault(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	failing := &fakeResolver{errs: map[string]error{
		"JPU01700001": errors.New("boom"),
	}}
	_, err := enricher.New(store, failing, &fakeFeatures{}).Run(context.Background())
	require.NoError(t, err)

	// by default the persisted error outcome gates the code like any other
	recovered := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-1"),
	}}
	summary, err := enricher.New(store, recovered, &fakeFeatures{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, recovered.calls)
}

func TestRetryErrors(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	failing := &fakeResolver{errs: map[string]error{
		"JPU01700001": errors.New("boom"),
	}}
	_, err := enricher.New(store, failing, &fakeFeatures{}).Run(context.Background())
	require.NoError(t, err)

	recovered := &fakeResolver{candidates: map[string][]musicbrainz.Candidate{
		"JPU01700001": candidates("mbid-1"),
	}}
	features := &fakeFeatures{feats: map[string]*data.Feature{
		"mbid-1": {MBID: "mbid-1", Tempo: 128},
	}}

	enr := enricher.New(store, recovered, features)
	enr.RetryErrors = true
	summary, err := enr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, []string{"JPU01700001"}, recovered.calls)

	resolution, err := store.GetResolution("JPU01700001")
	require.NoError(t, err)
	assert.Equal(t, data.StatusSuccess, resolution.Status)
}

func TestPopularityOrder(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Niche Track", "JP0000000010", 10)
	seedTrack(t, store, "t2", "Hit Track", "JP0000000090", 90)
	seedTrack(t, store, "t3", "Mid Track", "JP0000000050", 50)

	resolver := &fakeResolver{}
	_, err := enricher.New(store, resolver, &fakeFeatures{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"JP0000000090", "JP0000000050", "JP0000000010"}, resolver.calls)
}

func TestOneFailureDoesNotAbortRun(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Hit Track", "JP0000000090", 90)
	seedTrack(t, store, "t2", "Other Track", "JP0000000010", 10)

	resolver := &fakeResolver{
		errs: map[string]error{"JP0000000090": errors.New("boom")},
		candidates: map[string][]musicbrainz.Candidate{
			"JP0000000010": candidates("mbid-1"),
		},
	}
	features := &fakeFeatures{feats: map[string]*data.Feature{
		"mbid-1": {MBID: "mbid-1", Tempo: 120},
	}}

	summary, err := enricher.New(store, resolver, features).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Success)
}

func TestCancellationStopsRun(t *testing.T) {
	store := openDB(t)
	seedTrack(t, store, "t1", "Track A", "JPU01700001", 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &fakeResolver{}
	_, err := enricher.New(store, resolver, &fakeFeatures{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, resolver.calls)
}

// Package server serves a read-only dashboard over the bronze layer.
package server

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/ayasuda/jmusic/db"
)

// Run serves the dashboard on addr until ctx is canceled.
func Run(ctx context.Context, db *db.DB, addr string) error {
	srv := http.Server{Addr: addr, Handler: Handler(db)}

	errs := make(chan error)
	go func() { errs <- srv.ListenAndServe() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		return <-errs
	}
}

// Handler returns the dashboard routes, split out from Run so tests can mount
// them on an httptest server.
func Handler(db *db.DB) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, req *http.Request) {
		page, err := buildPage(db)
		if err != nil {
			log.Printf("dashboard error: %s", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, page); err != nil {
			log.Printf("dashboard render error: %s", err)
		}
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	return mux
}

type page struct {
	Overview  db.Overview
	Averages  db.FeatureAverages
	Top       []db.EnrichedTrack
	MatchRate float64
}

func buildPage(db *db.DB) (*page, error) {
	overview, err := db.GetOverview()
	if err != nil {
		return nil, err
	}
	averages, err := db.GetFeatureAverages()
	if err != nil {
		return nil, err
	}
	top, err := db.TopEnrichedTracks(10)
	if err != nil {
		return nil, err
	}

	p := &page{
		Overview: overview,
		Averages: averages,
		Top:      top,
	}
	if overview.TracksWithISRC > 0 {
		p.MatchRate = 100 * float64(overview.EnrichedTracks) / float64(overview.TracksWithISRC)
	}
	return p, nil
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>japanese music analytics</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; margin: 1em 0; }
td, th { border: 1px solid #999; padding: 0.3em 0.8em; text-align: left; }
.stat { margin-right: 2em; }
</style>
</head>
<body>
<h1>japanese music analytics</h1>

<h2>overview</h2>
<p id="overview">
<span class="stat" id="tracks">{{.Overview.Tracks}} tracks</span>
<span class="stat" id="tracks-with-isrc">{{.Overview.TracksWithISRC}} with an isrc</span>
<span class="stat" id="artists">{{.Overview.Artists}} artists</span>
<span class="stat" id="japanese-artists">{{.Overview.JapaneseArtists}} japanese</span>
<span class="stat" id="enriched-tracks">{{.Overview.EnrichedTracks}} enriched ({{printf "%.1f" .MatchRate}}%)</span>
</p>

<h2>resolution outcomes</h2>
<table id="outcomes">
<tr><th>status</th><th>count</th></tr>
{{range $status, $count := .Overview.Resolutions}}<tr><td>{{$status}}</td><td>{{$count}}</td></tr>
{{end}}</table>

<h2>feature averages ({{.Averages.Count}} rows)</h2>
<p id="averages">
<span class="stat">{{printf "%.1f" .Averages.Tempo}} bpm</span>
<span class="stat">{{printf "%.2f" .Averages.Danceability}} danceability</span>
<span class="stat">{{printf "%.1f" .Averages.LoudnessMean}} loudness</span>
</p>

<h2>top enriched tracks</h2>
<table id="top-tracks">
<tr><th>track</th><th>artist</th><th>popularity</th><th>tempo</th><th>danceability</th><th>key</th></tr>
{{range .Top}}<tr><td>{{.Name}}</td><td>{{.ArtistName}}</td><td>{{.Popularity}}</td><td>{{printf "%.1f" .Tempo}}</td><td>{{printf "%.2f" .Danceability}}</td><td>{{.Key}} {{.Scale}}</td></tr>
{{end}}</table>
</body>
</html>
`))

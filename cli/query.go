package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/subcmd"
)

func query(ctx context.Context, db *db.DB, args []string) error {
	subcmd := subcmd.New("query", "run ad-hoc sql against the bronze layer")
	subcmd.SetArg("sql", "string", "a sql statement; omit to print sample queries")
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	statement := strings.Join(subcmd.Args(), " ")
	if strings.TrimSpace(statement) == "" {
		fmt.Println(sampleQueries)
		return nil
	}

	columns, rows, err := db.Query(ctx, statement)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, strings.Join(columns, "\t")+"\n")
	for _, row := range rows {
		fmt.Fprintf(tw, strings.Join(row, "\t")+"\n")
	}
	tw.Flush()

	fmt.Printf("\nrows returned: %d\n", len(rows))
	return nil
}

var sampleQueries = strings.TrimSpace(`
sample queries:

  count rows in each table:
    select 'tracks' as t, count(*) from bronze_tracks
    union all select 'artists', count(*) from bronze_artists
    union all select 'features', count(*) from bronze_acousticbrainz_features;

  top 10 most popular tracks:
    select track_name, artist_name, popularity from bronze_tracks
    order by popularity desc limit 10;

  lookup outcomes:
    select status, count(*) from bronze_isrc_mbid_mapping group by status;

  tracks with audio features:
    select t.track_name, t.artist_name, f.tempo, f.danceability, f.key_key
    from bronze_tracks t
    join bronze_acousticbrainz_features f on f.track_id = t.track_id
    order by t.popularity desc;
`)

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayasuda/jmusic/acousticbrainz"
	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/enricher"
	"github.com/ayasuda/jmusic/limiter"
	"github.com/ayasuda/jmusic/musicbrainz"
	"github.com/ayasuda/jmusic/subcmd"
)

func enrich(ctx context.Context, db *db.DB, args []string) error {
	subcmd := subcmd.New("enrich", "look up audio features for staged tracks by isrc\nalready-resolved codes are skipped, so an interrupted run can be restarted")
	var (
		pace = subcmd.Duration("pace", 1200*time.Millisecond,
			"minimum spacing between lookup requests")
		retryErrors = subcmd.Bool("retry-errors", false,
			"re-attempt codes whose previous lookup failed (by default an error outcome blocks reprocessing, like any other outcome)")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	lim := limiter.New(*pace)
	enr := enricher.New(db, musicbrainz.New(lim), acousticbrainz.New(lim))
	enr.RetryErrors = *retryErrors

	summary, err := enr.Run(ctx)

	// a partial summary is still worth printing when interrupted
	fmt.Println(summary)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("enrich error: %w", err)
	}
	return err
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/fetcher"
	"github.com/ayasuda/jmusic/spotify"
	"github.com/ayasuda/jmusic/subcmd"
)

func extract(ctx context.Context, db *db.DB, args []string) error {
	subcmd := subcmd.New("extract", "stage japanese-music tracks and artists from spotify\nrequires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	clientID, clientSecret := os.Getenv("SPOTIFY_CLIENT_ID"), os.Getenv("SPOTIFY_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("must set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}
	spo := spotify.New(clientID, clientSecret)

	return fetcher.New(db, spo).Run(ctx)
}

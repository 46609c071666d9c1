package main

import (
	"context"
	"fmt"

	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/server"
	"github.com/ayasuda/jmusic/subcmd"
)

func serve(ctx context.Context, db *db.DB, args []string) error {
	subcmd := subcmd.New("serve", "run the dashboard web server")
	var (
		port = subcmd.Int("port", 9999, "http port")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	addr := fmt.Sprintf(":%d", *port)
	return server.Run(ctx, db, addr)
}

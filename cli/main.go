// this program stages japanese-music catalog data from spotify in a sqlite3
// database file, enriches it with audio features looked up by isrc, and
// serves tools for exploring the result.
//
// see db/schema.sql for info about the resulting database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/sigctx"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		panic(err)
	} else if err != nil && errors.Is(err, context.Canceled) {
		fmt.Println("canceled")
	}
}

var usage = strings.TrimSpace(`
usage: jmusic $cmd
valid $cmd are 'extract', 'enrich', 'progress', 'query', 'serve'
for help: jmusic $cmd -help
database file is 'jmusic.db', override with JMUSIC_DB
`)

func run() error {
	ctx := sigctx.New()

	dbPath := os.Getenv("JMUSIC_DB")
	if dbPath == "" {
		dbPath = "jmusic.db"
	}

	db, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(os.Args) < 2 {
		return errors.New(usage)
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "extract":
		return extract(ctx, db, args)

	case "enrich":
		return enrich(ctx, db, args)

	case "progress":
		return progress(ctx, db, args)

	case "query":
		return query(ctx, db, args)

	case "serve":
		return serve(ctx, db, args)

	default:
		return fmt.Errorf("unknown cmd: '%s'\n%s", cmd, usage)
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/ayasuda/jmusic/db"
	"github.com/ayasuda/jmusic/subcmd"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func progress(ctx context.Context, db *db.DB, args []string) error {
	subcmd := subcmd.New("progress", "report extraction and enrichment progress")
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	overview, err := db.GetOverview()
	if err != nil {
		return err
	}

	printSection("tracks", overview.Tracks, map[string]int{
		"with an isrc": overview.TracksWithISRC,
		"enriched":     overview.EnrichedTracks,
	})
	printSection("artists", overview.Artists, map[string]int{
		"japanese": overview.JapaneseArtists,
	})
	printSection("isrc lookups", sum(overview.Resolutions), overview.Resolutions)

	return nil
}

var humanPrinter = message.NewPrinter(language.English)

func printSection(name string, known int, done map[string]int) {
	humanPrinter.Printf("%s\n", name)
	humanPrinter.Printf("  %d\tknown\n", known)
	for k, v := range done {
		if known != 0 {
			humanPrinter.Printf("  %d\t%s (%.2f%%)\n", v, k, 100.0*float64(v)/float64(known))
		} else {
			humanPrinter.Printf("  %d\t%s\n", v, k)
		}
	}
	humanPrinter.Printf("\n")
}

func sum(counts map[string]int) int {
	total := 0
	for _, count := range counts {
		total += count
	}
	return total
}

package fetcher

import (
	"strings"
	"unicode"

	"github.com/ayasuda/jmusic/data"
)

// japaneseGenres are Spotify genre tags that mark an artist as Japanese even
// when their display name is romanized.
var japaneseGenres = []string{
	"j-pop", "j-rock", "j-rap", "j-indie", "j-dance",
	"city pop", "shibuya-kei", "anime", "japanese r&b",
	"japanese rock", "japanese hip hop", "jpop", "jrock",
	"visual kei", "enka", "kayokyoku",
}

// isJapaneseArtist combines two signals: Japanese script in the artist's name
// and Japanese genre tags. Either one is enough.
func isJapaneseArtist(artist *data.Artist) bool {
	return hasJapaneseScript(artist.Name) || hasJapaneseGenre(artist.Genres)
}

// hasJapaneseScript reports whether text contains hiragana, katakana, or
// kanji.
func hasJapaneseScript(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

func hasJapaneseGenre(genres []string) bool {
	for _, genre := range genres {
		lowered := strings.ToLower(genre)
		for _, jgenre := range japaneseGenres {
			if strings.Contains(lowered, jgenre) {
				return true
			}
		}
	}
	return false
}

// Package musicbrainz resolves standardized recording codes (ISRCs) to
// recording identifiers using the MusicBrainz web service.
package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ayasuda/jmusic/request"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// MusicBrainz requires clients to identify themselves.
const userAgent = "jmusic/1.0 (https://github.com/ayasuda/jmusic)"

// A Pacer spaces out requests. Resolve waits on it before every call.
type Pacer interface {
	Wait(ctx context.Context) error
	Backoff(d time.Duration)
}

// A Candidate is one recording returned for an ISRC, in the order the service
// supplied them. The service's order is treated as relevance order; no
// re-ranking happens on our side.
type Candidate struct {
	// like "96685213-a25c-4678-9a13-abd9ec81cf35"
	MBID string

	Title  string
	Artist string
}

// New creates a MusicBrainz client that paces its requests with the given
// pacer.
func New(pacer Pacer) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		pacer:   pacer,
		BaseURL: defaultBaseURL,
	}
}

type Client struct {
	http  *http.Client
	pacer Pacer

	// BaseURL is overridable for tests.
	BaseURL string
}

// Resolve maps an ISRC to the recordings MusicBrainz knows for it. A nil
// error with an empty result means the service authoritatively has no match;
// a non-nil error means the lookup itself failed and may succeed on a future
// run. The client holds no cache: the staging store remembers outcomes.
func (mb *Client) Resolve(ctx context.Context, isrc string) ([]Candidate, error) {
	if isrc == "" {
		return nil, fmt.Errorf("empty isrc")
	}

	if err := mb.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("fmt", "json")
	query.Set("inc", "artist-credits")
	u := fmt.Sprintf("%s/isrc/%s?%s", mb.BaseURL, url.PathEscape(isrc), query.Encode())

	var results struct {
		Recordings []struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			ArtistCredit []struct {
				Name string `json:"name"`
			} `json:"artist-credit"`
		} `json:"recordings"`
	}

	header := http.Header{}
	header.Set("User-Agent", userAgent)

	if _, err := request.GetJSON(ctx, mb.http, u, header, &results); errors.Is(err, request.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		mb.backoffFrom(err)
		return nil, fmt.Errorf("isrc lookup error for '%s': %w", isrc, err)
	}

	candidates := make([]Candidate, 0, len(results.Recordings))
	for _, recording := range results.Recordings {
		candidate := Candidate{
			MBID:  recording.ID,
			Title: recording.Title,
		}
		if len(recording.ArtistCredit) > 0 {
			candidate.Artist = recording.ArtistCredit[0].Name
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// backoffFrom widens the pacing interval when the service says it is
// throttling us. MusicBrainz answers 503 with a Retry-After measured in
// seconds.
func (mb *Client) backoffFrom(err error) {
	var respErr *request.StatusError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusServiceUnavailable {
		return
	}
	seconds, parseErr := strconv.ParseInt(respErr.RetryAfter, 10, 64)
	if parseErr != nil || seconds <= 0 {
		return
	}
	mb.pacer.Backoff(time.Duration(seconds)*time.Second + time.Second)
}

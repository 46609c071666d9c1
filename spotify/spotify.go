// Package spotify is a client for the parts of the Spotify web API the
// catalog extraction needs: playlist search, playlist tracks, and artist
// details.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayasuda/jmusic/data"
	"github.com/ayasuda/jmusic/request"
)

const nextReqFilename = "spotify-next-req"

// New creates a new Spotify client, with the given clientID and clientSecret.
func New(clientID, clientSecret string) *Client {
	var nextReqAt time.Time
	if _, err := os.Stat(nextReqFilename); !errors.Is(err, os.ErrNotExist) {
		bs, err := os.ReadFile(nextReqFilename)
		if err != nil {
			panic(err)
		}
		nextReqAt, err = time.Parse(time.UnixDate, string(bs))
		if err != nil {
			panic(err)
		}
	}

	client := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		nextReqAtPtr: atomic.Pointer[time.Time]{},
		delay:        time.Second / 2,
	}
	client.setNextReqAt(nextReqAt)
	return client
}

type Client struct {
	mu sync.Mutex

	clientID     string
	clientSecret string

	nextReqAtPtr atomic.Pointer[time.Time]
	delay        time.Duration

	accessToken string
	expiresAt   time.Time
}

// A Playlist is a search hit: just enough to fetch its tracks.
type Playlist struct {
	SpotifyID string
	Name      string
}

// SearchPlaylists returns up to limit playlists matching the query.
func (spo *Client) SearchPlaylists(ctx context.Context, query string, limit int) ([]Playlist, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("type", "playlist")
	values.Set("limit", strconv.Itoa(limit))

	resp, err := spo.get(ctx, "https://api.spotify.com/v1/search", values)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	var results struct {
		Playlists struct {
			Items []struct {
				ID   string
				Name string
			}
		}
	}
	dec := json.NewDecoder(resp)
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("playlist search decode error: %w", err)
	}

	var playlists []Playlist
	for _, item := range results.Playlists.Items {
		// the search API pads short result pages with null entries
		if item.ID == "" {
			continue
		}
		playlists = append(playlists, Playlist{SpotifyID: item.ID, Name: item.Name})
	}
	return playlists, nil
}

// FetchPlaylistTracks returns every track on a playlist, paging through the
// playlist-items endpoint. The playlist's name is recorded on each track as
// its extraction source.
func (spo *Client) FetchPlaylistTracks(ctx context.Context, playlist Playlist) ([]data.Track, error) {
	var tracks []data.Track

	for offset := 0; offset < 1000; offset += 100 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := spo.fetchPlaylistTracksPage(ctx, playlist.SpotifyID, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if len(item.Track) == 0 || string(item.Track) == "null" {
				continue
			}

			var fetched playlistTrack
			if err := json.Unmarshal(item.Track, &fetched); err != nil {
				return nil, fmt.Errorf("playlist track decode error: %w", err)
			}
			if fetched.ID == "" {
				continue
			}

			track := data.Track{
				TrackID: fetched.ID,
				Name:    fetched.Name,

				AlbumName:            fetched.Album.Name,
				AlbumType:            fetched.Album.AlbumType,
				ReleaseDate:          fetched.Album.ReleaseDate,
				ReleaseDatePrecision: fetched.Album.ReleaseDatePrecision,

				Popularity: fetched.Popularity,
				DurationMS: fetched.DurationMS,
				Explicit:   fetched.Explicit,
				SpotifyURL: fetched.ExternalURLs.Spotify,
				ISRC:       fetched.ExternalIDs.ISRC,

				SourcePlaylist: playlist.Name,
				RawJSON:        string(item.Track),
			}
			if len(fetched.Artists) > 0 {
				track.ArtistID = fetched.Artists[0].ID
				track.ArtistName = fetched.Artists[0].Name
			}
			tracks = append(tracks, track)
		}

		if page.Next == "" {
			break
		}
	}

	return tracks, nil
}

func (spo *Client) fetchPlaylistTracksPage(ctx context.Context, playlistSpotifyID string, offset int) (*playlistTracksPage, error) {
	query := url.Values{}
	query.Set("limit", "100")
	query.Set("offset", strconv.Itoa(offset))

	resp, err := spo.get(ctx, fmt.Sprintf("https://api.spotify.com/v1/playlists/%s/tracks", playlistSpotifyID), query)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	var results playlistTracksPage
	dec := json.NewDecoder(resp)
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("playlist tracks decode error: %w", err)
	}

	return &results, nil
}

type playlistTracksPage struct {
	Limit  int
	Offset int
	Total  int

	Next string

	Items []struct {
		// kept raw so the verbatim payload lands in bronze_tracks
		Track json.RawMessage
	}
}

type playlistTrack struct {
	ID         string
	Name       string
	Popularity int64
	DurationMS int64 `json:"duration_ms"`
	Explicit   bool

	Album struct {
		Name                 string
		AlbumType            string `json:"album_type"`
		ReleaseDate          string `json:"release_date"`
		ReleaseDatePrecision string `json:"release_date_precision"`
	}

	Artists []struct {
		ID   string
		Name string
	}

	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`

	ExternalURLs struct {
		Spotify string
	} `json:"external_urls"`
}

// FetchArtists returns full artist records for up to fifty spotify ids.
func (spo *Client) FetchArtists(ctx context.Context, artistSpotifyIDs []string) ([]data.Artist, error) {
	if len(artistSpotifyIDs) > 50 {
		return nil, fmt.Errorf("at most 50 artists per request, got %d", len(artistSpotifyIDs))
	}

	query := url.Values{}
	query.Set("ids", strings.Join(artistSpotifyIDs, ","))

	resp, err := spo.get(ctx, "https://api.spotify.com/v1/artists", query)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	var results struct {
		Artists []json.RawMessage
	}
	dec := json.NewDecoder(resp)
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("artists decode error: %w", err)
	}

	var artists []data.Artist
	for _, raw := range results.Artists {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}

		var fetched struct {
			ID        string
			Name      string
			Genres    []string
			Followers struct {
				Total int64
			}
			Popularity   int64
			ExternalURLs struct {
				Spotify string
			} `json:"external_urls"`
			Images []struct {
				URL string
			}
		}
		if err := json.Unmarshal(raw, &fetched); err != nil {
			return nil, fmt.Errorf("artist decode error: %w", err)
		}

		artist := data.Artist{
			ArtistID:   fetched.ID,
			Name:       fetched.Name,
			Genres:     fetched.Genres,
			Popularity: fetched.Popularity,
			Followers:  fetched.Followers.Total,
			SpotifyURL: fetched.ExternalURLs.Spotify,
			RawJSON:    string(raw),
		}
		if len(fetched.Images) > 0 {
			artist.ImageURL = fetched.Images[0].URL
		}
		artists = append(artists, artist)
	}

	return artists, nil
}

func (spo *Client) nextReqAt() time.Time {
	return *spo.nextReqAtPtr.Load()
}

func (spo *Client) setNextReqAt(to time.Time) {
	spo.nextReqAtPtr.Store(&to)
}

func (spo *Client) get(ctx context.Context, baseURL string, query url.Values) (io.ReadCloser, error) {
	spo.mu.Lock()
	defer spo.mu.Unlock()

retry:
	nextReqAt := spo.nextReqAt()
	if !nextReqAt.IsZero() {
		now := time.Now()
		if nextReqAt.Sub(now) > time.Second {
			log.Printf("next request in %s at %s", nextReqAt.Sub(now).Truncate(time.Second), nextReqAt.Format(time.StampMilli))
		}
	wait:
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Until(nextReqAt)):
			break wait
		}
		if err := os.Remove(nextReqFilename); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	url, _ := url.Parse(baseURL)
	url.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}

	token, err := spo.token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	if resp.StatusCode == 429 {
		spo.delay = 2 * spo.delay
		var nextReqAt time.Time
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter == "" {
			log.Printf("no retry-after header on 429; retrying in 1 minute")
			nextReqAt = time.Now().Add(time.Minute)
		} else {
			seconds, err := strconv.ParseInt(retryAfter, 10, 64)
			if err != nil {
				return nil, err
			}
			waitTime := time.Duration(seconds)*time.Second + time.Second
			log.Printf("429; retrying in %s", waitTime)
			nextReqAt = time.Now().Add(waitTime)
		}
		spo.setNextReqAt(nextReqAt)
		if err := os.WriteFile(nextReqFilename, []byte(nextReqAt.Format(time.UnixDate)), 0666); err != nil {
			return nil, err
		}
		goto retry
	}
	if err := request.Error(resp); err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}

	spo.setNextReqAt(time.Now().Add(spo.delay))

	return resp.Body, nil
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (spo *Client) token() (string, error) {
	if spo.accessToken == "" || spo.expiresAt.Before(time.Now().Add(time.Second)) {
		if err := spo.fetchToken(); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("Bearer %s", spo.accessToken), nil
}

func (spo *Client) fetchToken() error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	url := "https://accounts.spotify.com/api/token"
	req, err := http.NewRequest("POST", url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("token request error: %w", err)
	}
	up := fmt.Sprintf("%s:%s", spo.clientID, spo.clientSecret)
	credential := base64.StdEncoding.EncodeToString([]byte(up))
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", credential))
	req.Header.Set("Content-type", "application/x-www-form-urlencoded")

	requestAt := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request error: %w", err)
	}
	defer resp.Body.Close()
	if err := request.Error(resp); err != nil {
		return fmt.Errorf("token fetch error: %w", err)
	}

	var result tokenResult
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&result); err != nil {
		return fmt.Errorf("token decode error: %w", err)
	}

	spo.accessToken = result.AccessToken
	spo.expiresAt = requestAt.Add(time.Duration(result.ExpiresIn) * time.Second)

	return nil
}

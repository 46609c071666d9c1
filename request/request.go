package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
)

// ErrNotFound reports an authoritative 404 from an upstream service: the
// thing asked about does not exist. It is not a transient fault and callers
// must not retry it.
var ErrNotFound = errors.New("not found")

// GetJSON does an HTTP GET on the given URL with the given headers, then
// parses the response as JSON into out. It also returns the raw body so
// callers can retain the payload verbatim.
//
// A 404 yields ErrNotFound; any other non-2xx status or a malformed payload
// yields an error describing the response.
func GetJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("request error for '%s': %w", url, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching '%s': %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("'%s': %w", url, ErrNotFound)
	}
	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("unexpected status from '%s': %w", url, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading body from '%s': %w", url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("error parsing json from '%s': %w", url, err)
	}

	return body, nil
}

// A StatusError is a non-2xx response, carrying enough of the response for
// callers to react to throttling.
type StatusError struct {
	StatusCode int
	RetryAfter string
	Dump       string
}

func (e *StatusError) Error() string {
	if e.Dump == "" {
		return fmt.Sprintf("http status code %d", e.StatusCode)
	}
	return fmt.Sprintf("http status code %d:\n%s", e.StatusCode, e.Dump)
}

// Error checks the given http response for an error code, and, if one is
// present, reads the body and returns a friendly error.
func Error(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
		if bs, err := httputil.DumpResponse(resp, true); err == nil {
			statusErr.Dump = string(bs)
		}
		return statusErr
	}
	return nil
}

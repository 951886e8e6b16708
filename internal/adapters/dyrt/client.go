// internal/adapters/dyrt/client.go
package dyrt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"campground_ingest/internal/adapters/observability"
	"campground_ingest/internal/domain"
)

const searchPath = "/locations/search-results"

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int, timeout time.Duration) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// SearchLocations issues exactly one GET against the search endpoint.
// Retrying is left to the caller.
func (c *Client) SearchLocations(ctx context.Context, req domain.FetchRequest) (domain.RawPage, error) {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return domain.RawPage{}, ctx.Err()
		}
		return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchTransient, Message: err.Error(), Err: err}
	}

	u := c.base + searchPath + "?" + Params(req).Encode()
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchClientError, Message: err.Error(), Err: err}
	}
	hreq.Header.Set("Accept", "application/vnd.api+json, application/json")
	hreq.Header.Set("User-Agent", "campground-ingest/1.0")

	start := time.Now()
	resp, err := c.hc.Do(hreq)
	if err != nil {
		observability.ObserveExternal("dyrt", searchPath, 0, time.Since(start))
		// network error or context canceled
		if ctx.Err() != nil {
			return domain.RawPage{}, ctx.Err()
		}
		return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchTransient, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("dyrt", searchPath, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return domain.RawPage{}, ctx.Err()
			}
			return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchTransient, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
		}
		return decodePage(body)

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.RawPage{}, &domain.FetchError{
			Kind:       domain.FetchTransient,
			StatusCode: resp.StatusCode,
			Message:    readMessage(resp.Body),
		}

	default:
		return domain.RawPage{}, &domain.FetchError{
			Kind:       domain.FetchClientError,
			StatusCode: resp.StatusCode,
			Message:    readMessage(resp.Body),
		}
	}
}

// Params encodes the upstream query string for req.
func Params(req domain.FetchRequest) url.Values {
	v := url.Values{}
	if req.BBox != "" {
		v.Set("filter[search][bbox]", req.BBox)
	}
	if req.Sort != "" {
		v.Set("sort", string(req.Sort))
	}
	v.Set("page[number]", strconv.Itoa(req.PageNumber))
	v.Set("page[size]", strconv.Itoa(req.PageSize))
	return v
}

var errNoData = errors.New(`"data" is missing or not an array`)

func decodePage(body []byte) (domain.RawPage, error) {
	var env struct {
		Data  json.RawMessage `json:"data"`
		Meta  map[string]any  `json:"meta"`
		Links map[string]any  `json:"links"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchMalformedResponse, Message: err.Error(), Err: err}
	}
	if len(env.Data) == 0 || env.Data[0] != '[' {
		return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchMalformedResponse, Message: errNoData.Error(), Err: errNoData}
	}

	// Records that are not objects are kept as empty maps so the normalizer
	// rejects them individually instead of failing the page.
	var items []json.RawMessage
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return domain.RawPage{}, &domain.FetchError{Kind: domain.FetchMalformedResponse, Message: err.Error(), Err: err}
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		var m map[string]any
		d := json.NewDecoder(bytes.NewReader(it))
		d.UseNumber()
		if err := d.Decode(&m); err != nil || m == nil {
			m = map[string]any{}
		}
		out = append(out, m)
	}
	return domain.RawPage{Data: out, Meta: env.Meta, Links: env.Links, Body: body}, nil
}

// readMessage reads a small error body for diagnostics.
func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(b))
}

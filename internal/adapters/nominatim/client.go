// internal/adapters/nominatim/client.go
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"wanderlust/internal/adapters/observability"
	"wanderlust/internal/domain"
)

// Config is everything the resolver needs; nothing is read from the environment here.
type Config struct {
	BaseURL   string        // e.g. https://nominatim.openstreetmap.org
	UserAgent string        // Nominatim rejects anonymous clients
	Language  string        // Accept-Language, defaults to "en"
	Timeout   time.Duration // bounds the whole call, defaults to 5s
	RPS       int           // client-side rate limit, defaults to 1
	Fallback  *domain.Point // defaults to domain.FallbackPoint
}

type Client struct {
	search   string
	ua       string
	lang     string
	timeout  time.Duration
	hc       *http.Client
	rl       *rate.Limiter
	fallback domain.Point
}

var (
	ErrNoMatch = errors.New("nominatim: no match")
	ErrCoords  = errors.New("nominatim: malformed coordinates")
)

// StatusError is returned by Lookup for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nominatim: bad status %d: %s", e.Code, e.Body)
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("geocoder base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid geocoder base URL: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("geocoder user agent is required")
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	fb := domain.FallbackPoint
	if cfg.Fallback != nil {
		fb = *cfg.Fallback
	}
	return &Client{
		search:   strings.TrimRight(cfg.BaseURL, "/") + "/search",
		ua:       cfg.UserAgent,
		lang:     cfg.Language,
		timeout:  cfg.Timeout,
		hc:       &http.Client{Timeout: cfg.Timeout},
		rl:       rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		fallback: fb,
	}, nil
}

// Resolve never fails: every error path degrades to the fallback point.
// Empty or blank text is sent as-is and normally ends up there too.
func (c *Client) Resolve(ctx context.Context, location string) domain.Point {
	p, err := c.Lookup(ctx, location)
	if err == nil {
		observability.ObserveGeocode("resolved")
		return p
	}

	outcome := "transport"
	var se *StatusError
	var je *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.Is(err, ErrNoMatch):
		outcome = "empty"
	case errors.Is(err, ErrCoords):
		outcome = "coords"
	case errors.As(err, &se):
		outcome = "status"
	case errors.As(err, &je), errors.As(err, &te), errors.Is(err, io.ErrUnexpectedEOF):
		outcome = "decode"
	}
	observability.ObserveGeocode(outcome)
	log.Warn().Err(err).Str("location", location).Str("outcome", outcome).Msg("geocode degraded to fallback point")
	return c.fallback
}

type candidate struct {
	Lon string `json:"lon"`
	Lat string `json:"lat"`
}

// Lookup performs a single best-effort search and reports every failure.
// There are no retries.
func (c *Client) Lookup(ctx context.Context, location string) (domain.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rl.Wait(ctx); err != nil {
		return domain.Point{}, fmt.Errorf("nominatim: rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "json")
	q.Set("limit", "1")
	// percent-encode spaces as %20 rather than '+'; a literal '+' is already %2B
	raw := strings.ReplaceAll(q.Encode(), "+", "%20")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.search+"?"+raw, nil)
	if err != nil {
		return domain.Point{}, err
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept-Language", c.lang)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("nominatim", "search", 0, time.Since(start))
		return domain.Point{}, fmt.Errorf("nominatim: request failed: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("nominatim", "search", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Point{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out []candidate
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Point{}, fmt.Errorf("nominatim: decode: %w", err)
	}
	if len(out) == 0 {
		return domain.Point{}, ErrNoMatch
	}

	lon, err := parseCoord(out[0].Lon, 180)
	if err != nil {
		return domain.Point{}, fmt.Errorf("%w: lon %q", ErrCoords, out[0].Lon)
	}
	lat, err := parseCoord(out[0].Lat, 90)
	if err != nil {
		return domain.Point{}, fmt.Errorf("%w: lat %q", ErrCoords, out[0].Lat)
	}
	// longitude first, always
	return domain.NewPoint(lon, lat), nil
}

// parseCoord accepts finite decimal degrees within [-limit, limit].
func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, ErrCoords
	}
	return v, nil
}

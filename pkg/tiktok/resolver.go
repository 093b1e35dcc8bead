package tiktok

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"boostpanel/pkg/config"

	"go.uber.org/fx"
)

// ErrUnavailable means a resolve or fetch step could not complete. It is
// transient: callers retry on their own cadence, never inside this package.
var ErrUnavailable = errors.New("tiktok: data unavailable")

var (
	numericPattern = regexp.MustCompile(`^\d+$`)
	videoIDPattern = regexp.MustCompile(`/video/(\d+)`)

	// The video page embeds exactly one structured-data block under this
	// script tag; everything we need is inside it.
	dataScriptPattern = regexp.MustCompile(`(?s)<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__"[^>]*>(.*?)</script>`)
)

// Stats is the subset of video metadata the panel consumes.
type Stats struct {
	VideoID     string
	Description string
	Views       int64
	Likes       int64
}

// MetricSource turns a user-supplied link or id into a canonical video id
// and resolves its current engagement metrics.
type MetricSource interface {
	Resolve(ctx context.Context, input string) (string, error)
	Stats(ctx context.Context, videoID string) (Stats, error)
	Views(ctx context.Context, link string) (int64, error)
}

var Module = fx.Module("tiktok", fx.Provide(NewResolver))

// Resolver is the live HTTP MetricSource. It is a pure function of the
// HTTP responses it receives; tests drive it through stub servers.
type Resolver struct {
	baseURL   string
	userAgent string
	resolve   *http.Client
	fetch     *http.Client
}

func NewResolver(cfg *config.Config) MetricSource {
	return &Resolver{
		baseURL:   cfg.Resolver.BaseURL,
		userAgent: cfg.Resolver.UserAgent,
		resolve:   &http.Client{Timeout: cfg.Resolver.ResolveTimeout},
		fetch:     &http.Client{Timeout: cfg.Resolver.FetchTimeout},
	}
}

// Resolve accepts a bare numeric id or an arbitrary share URL. URLs are
// chased through redirects once to their canonical form, then matched for
// the /video/<id> path segment.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	if numericPattern.MatchString(input) {
		return input, nil
	}

	canonical := r.canonicalURL(ctx, input)

	m := videoIDPattern.FindStringSubmatch(canonical)
	if m == nil {
		return "", fmt.Errorf("%w: no video id in url", ErrUnavailable)
	}

	return m[1], nil
}

// canonicalURL follows redirects to the final URL. Any failure falls back
// to the raw input so extraction still gets a chance on the original link.
func (r *Resolver) canonicalURL(ctx context.Context, raw string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return raw
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.resolve.Do(req)
	if err != nil {
		return raw
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	return resp.Request.URL.String()
}

// Stats fetches the public video page and extracts the embedded stats
// block. The browser User-Agent is required: the upstream serves a
// different page to non-browser clients.
func (r *Resolver) Stats(ctx context.Context, videoID string) (Stats, error) {
	pageURL := fmt.Sprintf("%s/@any/video/%s", r.baseURL, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.fetch.Do(req)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return parseStats(videoID, body)
}

// Views is the scheduler entrypoint: resolve the stored link, then fetch
// the current view count.
func (r *Resolver) Views(ctx context.Context, link string) (int64, error) {
	videoID, err := r.Resolve(ctx, link)
	if err != nil {
		return 0, err
	}

	stats, err := r.Stats(ctx, videoID)
	if err != nil {
		return 0, err
	}

	return stats.Views, nil
}

// Package feed is the post-source adapter for a Happeo-style pages API. It
// pulls recent channel posts over HTTP+JSON, strips HTML, extracts agreement
// codes, and fails open: any transport problem is logged and degrades to an
// empty result so the pipeline sees "no new posts" instead of an abort.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"cctnotify/internal/domain"
)

const noTitle = "No Title"

type Config struct {
	BaseURL  string
	APIKey   string
	Channels []string // channel IDs to scan
	Label    string   // code label, e.g. "CCT"
	Amount   int      // page size per channel

	// RatePerSec/Burst pace requests against the feed host.
	RatePerSec float64
	Burst      int
}

type Source struct {
	cfg       Config
	hc        *http.Client
	limiter   *rate.Limiter
	extractor *Extractor
	log       *slog.Logger

	now func() time.Time // test seam
}

// New validates the connection parameters up front; missing ones are a
// construction-time fatal, per the batch job's error model.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" || len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("feed: base URL, API key and at least one channel are required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Label == "" {
		cfg.Label = "CCT"
	}
	if cfg.Amount <= 0 {
		cfg.Amount = 50
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2
	}

	extractor, err := NewExtractor(cfg.Label)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	return &Source{
		cfg:       cfg,
		hc:        &http.Client{Timeout: 20 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		extractor: extractor,
		log:       logger,
		now:       time.Now,
	}, nil
}

type rawPost struct {
	ID          any    `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	PublishedMs any    `json:"publishedMs"`
}

type feedResponse struct {
	Posts []rawPost `json:"posts"`
	Items []rawPost `json:"items"`
}

// RecentPosts fetches each configured channel (concurrently, shared rate
// limiter) and returns the posts published within the window that mention at
// least one agreement code. The error return is always nil; failures are
// logged per channel and that channel contributes nothing.
func (s *Source) RecentPosts(ctx context.Context, windowHours int) ([]domain.Post, error) {
	perChannel := make([][]rawPost, len(s.cfg.Channels))

	var g errgroup.Group
	for i, channel := range s.cfg.Channels {
		g.Go(func() error {
			raw, err := s.fetchChannel(ctx, channel)
			if err != nil {
				// one unreachable channel must not sink the pass
				s.log.Error("feed fetch failed", "channel", channel, "error", err)
				return nil
			}
			s.log.Info("feed items retrieved", "channel", channel, "count", len(raw))
			perChannel[i] = raw
			return nil
		})
	}
	_ = g.Wait()

	cutoff := s.now().Add(-time.Duration(windowHours) * time.Hour).UnixMilli()

	seen := make(map[string]bool)
	var posts []domain.Post
	for _, raw := range perChannel {
		for _, p := range raw {
			post, ok := s.buildPost(p, cutoff)
			if !ok {
				continue
			}
			if post.ID != "" && seen[post.ID] {
				continue
			}
			seen[post.ID] = true
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *Source) fetchChannel(ctx context.Context, channel string) ([]rawPost, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("amount", strconv.Itoa(s.cfg.Amount))
	q.Set("order", "created_desc")
	q.Set("includeChannel", channel)
	endpoint := s.cfg.BaseURL + "/posts?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-happeo-apikey", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("feed status %d", res.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}
	if body.Posts != nil {
		return body.Posts, nil
	}
	return body.Items, nil
}

// buildPost applies the window filter and code extraction. Posts without a
// publish time, outside the window, or without any code are dropped.
func (s *Source) buildPost(p rawPost, cutoffMs int64) (domain.Post, bool) {
	ts, ok := asMillis(p.PublishedMs)
	if !ok || ts < cutoffMs {
		return domain.Post{}, false
	}

	title := p.Title
	if title == "" {
		title = noTitle
	}

	text := title + " " + stripHTML(p.Content)
	codes := s.extractor.Codes(text)
	if len(codes) == 0 {
		return domain.Post{}, false
	}

	s.log.Info("post accepted", "title", clip(title, 30), "codes", codes)
	return domain.Post{
		ID:      asString(p.ID),
		Title:   title,
		Content: text,
		Codes:   codes,
	}, true
}

// asMillis coerces the feed's publishedMs field, which shows up as either a
// JSON number or a numeric string.
func asMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// ids come back as numbers on some feed versions
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

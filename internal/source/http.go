package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/config"
)

// HTTPSource pulls alerts from a JSON feed, typically the province alert API.
type HTTPSource struct {
	url     string
	client  *http.Client
	maxSize int64
}

func NewHTTPSource(feedURL string, timeout time.Duration) (*HTTPSource, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed URL is required")
	}
	parsedURL, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("feed URL must use http or https scheme")
	}
	host := strings.ToLower(parsedURL.Hostname())
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		if parsedURL.Scheme == "http" {
			return nil, fmt.Errorf("non-localhost URLs must use https")
		}
	}
	return &HTTPSource{
		url:     feedURL,
		client:  &http.Client{Timeout: timeout},
		maxSize: config.MaxFeedSize,
	}, nil
}

// feedAlert is the wire shape of one alert in the feed. Optional fields get an
// explicit default in toAlert rather than an ad hoc fallback at render time.
type feedAlert struct {
	ID          string `json:"id"`
	Title       string `json:"headline"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Area        string `json:"area"`
	Urgency     string `json:"urgency"`
	OnsetAt     string `json:"onset_at"`
	ExpiresAt   string `json:"expires_at"`
}

type feedResponse struct {
	Alerts []feedAlert `json:"alerts"`
}

func (h *HTTPSource) FetchAlerts(ctx context.Context) ([]alert.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.GetUserAgent())
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alert feed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var feed feedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, h.maxSize)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode alert feed: %w", err)
	}
	alerts := make([]alert.Alert, 0, len(feed.Alerts))
	for i := range feed.Alerts {
		a, err := toAlert(&feed.Alerts[i])
		if err != nil {
			return nil, fmt.Errorf("invalid alert in feed: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alert.Dedupe(alerts), nil
}

func toAlert(fa *feedAlert) (alert.Alert, error) {
	a := alert.Alert{
		ID:          fa.ID,
		Title:       fa.Title,
		Description: fa.Description,
		Severity:    alert.ParseSeverity(fa.Severity),
		Category:    alert.Category(fa.Category),
		Area:        fa.Area,
		Urgency:     alert.ParseUrgency(fa.Urgency),
	}
	if fa.OnsetAt != "" {
		onset, err := time.Parse(time.RFC3339, fa.OnsetAt)
		if err != nil {
			return alert.Alert{}, fmt.Errorf("alert %q: invalid onset_at: %w", fa.ID, err)
		}
		a.OnsetAt = onset
	}
	expires, err := time.Parse(time.RFC3339, fa.ExpiresAt)
	if err != nil {
		return alert.Alert{}, fmt.Errorf("alert %q: invalid expires_at: %w", fa.ID, err)
	}
	a.ExpiresAt = expires
	a.Sanitize()
	if err := a.Validate(); err != nil {
		return alert.Alert{}, err
	}
	return a, nil
}

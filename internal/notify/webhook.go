package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stormwatch/stormwatch/internal/config"
)

type WebhookSink struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

func NewWebhookSink(webhookURL string, timeout time.Duration) (*WebhookSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	parsedURL, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL must use http or https scheme")
	}
	host := strings.ToLower(parsedURL.Hostname())
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		if parsedURL.Scheme == "http" {
			return nil, fmt.Errorf("non-localhost URLs must use https")
		}
	}
	return &WebhookSink{
		url:     webhookURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}, nil
}

type webhookResponse struct {
	NotificationID string `json:"notification_id"`
}

func (w *WebhookSink) Dispatch(ctx context.Context, n *Notification) (string, error) {
	if n == nil {
		return "", fmt.Errorf("notification is nil")
	}
	payload := map[string]interface{}{
		"title":     n.Title,
		"body":      n.Body,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if n.Delay > 0 {
		payload["delay_seconds"] = int(n.Delay / time.Second)
	}
	if len(n.Payload) > 0 {
		payload["data"] = n.Payload
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notification: %w", err)
	}
	if int64(len(jsonData)) > config.MaxPayloadSize {
		return "", fmt.Errorf("payload size %d exceeds maximum %d", len(jsonData), config.MaxPayloadSize)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.GetUserAgent())
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var parsed webhookResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&parsed); err != nil || parsed.NotificationID == "" {
		// Receiver acknowledged but did not assign an identifier.
		return fmt.Sprintf("webhook-%d", time.Now().UnixNano()), nil
	}
	return parsed.NotificationID, nil
}

func (w *WebhookSink) Name() string {
	return "webhook"
}

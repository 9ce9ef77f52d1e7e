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

type SlackSink struct {
	webhookURL string
	channel    string
	client     *http.Client
	timeout    time.Duration
}

type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
	MrkdwnIn  []string     `json:"mrkdwn_in,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

func NewSlackSink(webhookURL, channel string, timeout time.Duration) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}
	parsedURL, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid slack webhook URL: %w", err)
	}
	if parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("slack webhook URL must use https scheme")
	}
	if !strings.Contains(webhookURL, "hooks.slack.com") {
		return nil, fmt.Errorf("invalid slack webhook URL format")
	}
	if channel == "" {
		channel = "#weather-alerts"
	}
	return &SlackSink{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: timeout},
		timeout:    timeout,
	}, nil
}

func (s *SlackSink) Dispatch(ctx context.Context, n *Notification) (string, error) {
	if n == nil {
		return "", fmt.Errorf("notification is nil")
	}
	now := time.Now()
	attachment := SlackAttachment{
		Color:     mapSeverityToSlackColor(n.Payload["severity"]),
		Title:     n.Title,
		Text:      n.Body,
		Fields:    buildSlackFields(n),
		Footer:    "Stormwatch",
		Timestamp: now.Unix(),
		MrkdwnIn:  []string{"text", "fields"},
	}
	payload := SlackPayload{
		Channel:     s.channel,
		Attachments: []SlackAttachment{attachment},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Slack payload: %w", err)
	}
	if int64(len(jsonData)) > config.MaxPayloadSize {
		return "", fmt.Errorf("payload size %d exceeds maximum %d", len(jsonData), config.MaxPayloadSize)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.GetUserAgent())
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return fmt.Sprintf("slack-%d", now.UnixNano()), nil
}

func (s *SlackSink) Name() string {
	return "slack"
}

func mapSeverityToSlackColor(severity string) string {
	switch severity {
	case "extreme":
		return "danger"
	case "severe":
		return "danger"
	case "moderate":
		return "warning"
	case "minor":
		return "warning"
	default:
		return "#808080"
	}
}

func buildSlackFields(n *Notification) []SlackField {
	fields := make([]SlackField, 0, 6)
	if v := n.Payload["severity"]; v != "" {
		fields = append(fields, SlackField{Title: "Severity", Value: v, Short: true})
	}
	if v := n.Payload["category"]; v != "" {
		fields = append(fields, SlackField{Title: "Category", Value: v, Short: true})
	}
	if v := n.Payload["area"]; v != "" {
		fields = append(fields, SlackField{Title: "Area", Value: v, Short: true})
	}
	if v := n.Payload["urgency"]; v != "" {
		fields = append(fields, SlackField{Title: "Urgency", Value: v, Short: true})
	}
	if v := n.Payload["expires_at"]; v != "" {
		fields = append(fields, SlackField{Title: "Expires", Value: v, Short: true})
	}
	return fields
}

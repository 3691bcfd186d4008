package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coinscope/coinscope/server/internal/config"
)

const deliverTimeout = 10 * time.Second

// Notification is one message for every configured webhook.
type Notification struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Message  string `json:"message"`

	// Payload is sent as-is to generic http targets.
	Payload any `json:"payload,omitempty"`
}

func ruleNotification(a *Alert) Notification {
	cp := *a
	title := "coinscope alert: " + a.RuleName
	if a.State == StateResolved {
		title = "coinscope resolved: " + a.RuleName
	}
	return Notification{Title: title, Severity: a.Severity, Message: a.Message, Payload: &cp}
}

// Notifier posts notifications to Slack, Teams, ntfy or generic HTTP targets.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
}

// NewNotifier returns a Notifier. A nil client gets a 10s timeout.
func NewNotifier(webhooks []config.WebhookConfig, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: deliverTimeout}
	}
	return &Notifier{webhooks: webhooks, client: client}
}

// Deliver sends n to all configured targets.
// Errors are logged but do not affect the caller.
func (nt *Notifier) Deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	for _, wh := range nt.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = nt.sendSlack(ctx, url, n)
		case "teams":
			err = nt.sendTeams(ctx, url, n)
		case "http":
			err = nt.sendHTTP(ctx, url, n)
		case "ntfy":
			err = nt.sendNtfy(ctx, url, n)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"title", n.Title,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered", "type", wh.Type, "title", n.Title)
		}
	}
}

func (nt *Notifier) sendSlack(ctx context.Context, url string, n Notification) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s", severityLabel(n.Severity), n.Message),
	})
	return nt.post(ctx, url, "application/json", nil, body)
}

func (nt *Notifier) sendTeams(ctx context.Context, url string, n Notification) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(n.Severity),
		"summary":    n.Title,
		"title":      n.Title,
		"text":       n.Message,
	}
	body, _ := json.Marshal(payload)
	return nt.post(ctx, url, "application/json", nil, body)
}

func (nt *Notifier) sendHTTP(ctx context.Context, url string, n Notification) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": n})
	return nt.post(ctx, url, "application/json", nil, body)
}

// sendNtfy posts the message as plain text; ntfy reads the title and
// priority from headers.
func (nt *Notifier) sendNtfy(ctx context.Context, url string, n Notification) error {
	hdr := map[string]string{
		"Title":    n.Title,
		"Priority": ntfyPriority(n.Severity),
	}
	return nt.post(ctx, url, "text/plain", hdr, []byte(n.Message))
}

func (nt *Notifier) post(ctx context.Context, url, contentType string, hdr map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := nt.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch strings.ToLower(s) {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch strings.ToLower(s) {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

func ntfyPriority(s string) string {
	switch strings.ToLower(s) {
	case "critical":
		return "urgent"
	case "warning":
		return "high"
	default:
		return "default"
	}
}

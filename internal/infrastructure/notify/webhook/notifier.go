package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier posts operator alerts to a webhook. With no URL configured it
// degrades to structured log output so alerting never blocks a check run.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(url string, logger *slog.Logger) *Notifier {
	return &Notifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, subject, message string) error {
	if n.url == "" {
		n.logger.Warn("notification", "subject", subject, "message", message)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"subject": subject,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook status: %s", resp.Status)
	}
	return nil
}

package credentials

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker exercises one provider's credentials with a cheap
// authenticated GET. Any 4xx or 5xx counts as a failed check; for keyed
// endpoints a 401 or 403 is exactly the signal the monitor exists for.
type HTTPChecker struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

func newHTTPChecker(name, url string, headers map[string]string) *HTTPChecker {
	return &HTTPChecker{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewOllamaChecker probes the model listing endpoint.
func NewOllamaChecker(baseURL string) *HTTPChecker {
	url := ""
	if baseURL != "" {
		url = baseURL + "/api/tags"
	}
	return newHTTPChecker("ollama", url, nil)
}

// NewGotenbergChecker probes the conversion service's health endpoint.
func NewGotenbergChecker(baseURL string) *HTTPChecker {
	url := ""
	if baseURL != "" {
		url = baseURL + "/health"
	}
	return newHTTPChecker("gotenberg", url, nil)
}

// NewAzureDIChecker lists document models, which requires a valid key.
func NewAzureDIChecker(endpoint, apiKey string) *HTTPChecker {
	url := ""
	if endpoint != "" && apiKey != "" {
		url = endpoint + "/documentintelligence/documentModels?api-version=2024-11-30"
	}
	return newHTTPChecker("azure_di", url, map[string]string{
		"Ocp-Apim-Subscription-Key": apiKey,
	})
}

func (c *HTTPChecker) Name() string { return c.name }

func (c *HTTPChecker) Configured() bool { return c.url != "" }

func (c *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reach %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s returned status %d", c.name, resp.StatusCode)
	}
	return nil
}

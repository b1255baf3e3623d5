package azuredi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/infrastructure/resilience"
)

const (
	apiVersion   = "2023-07-31"
	pollInterval = 2 * time.Second
	pollBudget   = 5 * time.Minute
)

// Client runs documents through the prebuilt-read model of Azure Document
// Intelligence: submit, then poll the operation until it settles.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint, apiKey string, executor *resilience.Executor) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Configured() bool {
	return c.endpoint != "" && c.apiKey != ""
}

func (c *Client) Recognize(ctx context.Context, filePath string) (string, error) {
	if !c.Configured() {
		return "", domain.WrapError(domain.ErrInvalidInput, "ocr recognize", errors.New("azure document intelligence is not configured"))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read ocr input: %w", err)
	}

	var text string
	call := func(callCtx context.Context) error {
		operationURL, err := c.submit(callCtx, data)
		if err != nil {
			return err
		}
		text, err = c.poll(callCtx, operationURL)
		return err
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "azuredi.analyze", call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ocr recognize", err)
	}
	return text, nil
}

func (c *Client) submit(ctx context.Context, data []byte) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/prebuilt-read:analyze?api-version=%s", c.endpoint, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return "", &HTTPStatusError{
			Operation:  "analyze",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location")
	}
	return operationURL, nil
}

func (c *Client) poll(ctx context.Context, operationURL string) (string, error) {
	deadline := time.Now().Add(pollBudget)
	for {
		if time.Now().After(deadline) {
			return "", domain.WrapError(domain.ErrTemporary, "ocr poll", errors.New("analyze operation did not settle in time"))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return "", fmt.Errorf("build poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("poll request: %w", err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", fmt.Errorf("read poll response: %w", readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return "", &HTTPStatusError{
				Operation:  "poll",
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(body),
			}
		}

		var result struct {
			Status        string `json:"status"`
			AnalyzeResult struct {
				Content string `json:"content"`
			} `json:"analyzeResult"`
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return "", fmt.Errorf("decode poll response: %w", err)
		}

		switch result.Status {
		case "succeeded":
			return result.AnalyzeResult.Content, nil
		case "failed":
			return "", fmt.Errorf("analyze failed: %s: %s", result.Error.Code, result.Error.Message)
		}
	}
}

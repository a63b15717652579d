// Package parse extracts plain text from uploaded case files (PDF,
// Word, scans) by delegating to an external document-parsing service.
// The service runs asynchronous jobs: upload, poll, fetch markdown.
package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"casethread/internal/util"
	"casethread/pkg/logger"
)

// Client talks to a document-parsing service over REST.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// ClientParams configures a new parse client. BaseURL and APIKey are
// required; the poll settings get sane defaults.
type ClientParams struct {
	HTTPClient   *http.Client
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func NewClient(params ClientParams) *Client {
	if params.HTTPClient == nil {
		params.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if params.PollInterval <= 0 {
		params.PollInterval = 2 * time.Second
	}
	if params.PollTimeout <= 0 {
		params.PollTimeout = 5 * time.Minute
	}
	return &Client{
		httpClient:   params.HTTPClient,
		baseURL:      params.BaseURL,
		apiKey:       params.APIKey,
		pollInterval: params.PollInterval,
		pollTimeout:  params.PollTimeout,
	}
}

type uploadResponse struct {
	ID string `json:"id"`
}

type jobResponse struct {
	Status string `json:"status"`
}

type markdownResponse struct {
	Markdown string `json:"markdown"`
}

// ParseFile submits the file at path and waits for the parsed markdown.
func (c *Client) ParseFile(ctx context.Context, path string) (string, error) {
	jobID, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (string, error) {
		return c.upload(ctx, path)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)
	}
	logger.Debug(fmt.Sprintf("parse job %s started for %s", jobID, filepath.Base(path)))

	if err := c.waitForJob(ctx, jobID); err != nil {
		return "", err
	}
	return c.fetchMarkdown(ctx, jobID)
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/parsing/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var ur uploadResponse
	if err := c.do(req, &ur); err != nil {
		return "", err
	}
	if ur.ID == "" {
		return "", fmt.Errorf("parse service returned no job id")
	}
	return ur.ID, nil
}

func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/parsing/job/%s", c.baseURL, jobID), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		var jr jobResponse
		if err := c.do(req, &jr); err != nil {
			return err
		}
		switch jr.Status {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED":
			return fmt.Errorf("parse job %s ended with status %s", jobID, jr.Status)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("parse job %s did not finish within %s", jobID, c.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchMarkdown(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/parsing/job/%s/result/markdown", c.baseURL, jobID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var mr markdownResponse
	if err := c.do(req, &mr); err != nil {
		return "", err
	}
	if mr.Markdown == "" {
		return "", fmt.Errorf("parse job %s produced no text", jobID)
	}
	return mr.Markdown, nil
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("parse service returned %d: %s", res.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

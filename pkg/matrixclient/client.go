// Package matrixclient talks to a running matrix node over HTTP.
package matrixclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// AddResult is the metadata returned by POST /add.
type AddResult struct {
	MatrixShape []int   `json:"matrix_shape"`
	ElapsedTime float64 `json:"elapsed_time"`
	Device      string  `json:"device"`
}

// GPU is one entry of GET /gpu-info.
type GPU struct {
	Index         string `json:"gpu"`
	MemoryUsedMB  int    `json:"memory_used_MB"`
	MemoryTotalMB int    `json:"memory_total_MB"`
}

// APIError is a non-200 response from the node.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Detail)
}

// Client sends requests to a node.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a Client for the node at baseURL. A nil client uses
// http.DefaultClient.
func New(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Health returns the status reported by GET /health.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// GPUInfo returns the devices reported by GET /gpu-info.
func (c *Client) GPUInfo(ctx context.Context) ([]GPU, error) {
	var out struct {
		GPUs []GPU `json:"gpus"`
	}
	if err := c.do(ctx, http.MethodGet, "/gpu-info", nil, "", &out); err != nil {
		return nil, err
	}
	return out.GPUs, nil
}

// Add uploads two .npz containers as file_a and file_b.
func (c *Client) Add(ctx context.Context, nameA string, a io.Reader, nameB string, b io.Reader) (*AddResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writeFile(mw, "file_a", nameA, a); err != nil {
		return nil, err
	}
	if err := writeFile(mw, "file_b", nameB, b); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out AddResult
	if err := c.do(ctx, http.MethodPost, "/add", &body, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func writeFile(mw *multipart.Writer, field, name string, r io.Reader) error {
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("failed to create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to write form file %s: %w", field, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

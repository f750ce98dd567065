// Package client is the CLI-side client for the hookrelayd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Service struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Endpoint    string    `json:"endpoint"`
	ContentType string    `json:"content_type"`
	Status      bool      `json:"status"`
	Token       string    `json:"token,omitempty"`
	Events      []string  `json:"events"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ServiceRequest struct {
	Name        string   `json:"name"`
	Endpoint    string   `json:"endpoint"`
	ContentType string   `json:"content_type,omitempty"`
	Status      *bool    `json:"status,omitempty"`
	Token       string   `json:"token,omitempty"`
	Events      []string `json:"events"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CreateService(ctx context.Context, req *ServiceRequest) (*Service, error) {
	var svc Service
	if err := c.do(ctx, http.MethodPost, "/v1/services/", req, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.do(ctx, http.MethodGet, "/v1/services/", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *Client) GetService(ctx context.Context, id int64) (*Service, error) {
	var svc Service
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/services/%d", id), nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (c *Client) UpdateService(ctx context.Context, id int64, req *ServiceRequest) (*Service, error) {
	var svc Service
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/services/%d", id), req, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (c *Client) DeleteService(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/services/%d", id), nil, nil)
}

// FireEvent submits one event occurrence and returns the assigned id.
func (c *Client) FireEvent(ctx context.Context, name string, payload map[string]any) (string, error) {
	req := map[string]any{"name": name, "payload": payload}
	var resp struct {
		OccurrenceID string `json:"occurrence_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/events", req, &resp); err != nil {
		return "", err
	}
	return resp.OccurrenceID, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ms-gatepass/internal/models"
	"ms-gatepass/internal/utils"
)

// APIError is a non-2xx answer from the gate-pass service
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gatepass api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gatepass api: %d: %s", e.Status, e.Message)
}

// TokenSource supplies bearer tokens that may change over time
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the gate-pass HTTP API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token is sent as a bearer token when set; Tokens takes precedence
	Token  string
	Tokens TokenSource
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) ListPasses(ctx context.Context) ([]models.VisitorPass, error) {
	var out []models.VisitorPass
	if err := c.do(ctx, http.MethodGet, "/api/get-tickets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePass(ctx context.Context, req models.CreatePassRequest) error {
	return c.do(ctx, http.MethodPost, "/api/create-pass", req, nil)
}

func (c *Client) DeletePass(ctx context.Context, id int64) error {
	path := "/api/delete-pass?" + url.Values{"id": {strconv.FormatInt(id, 10)}}.Encode()
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) DashboardMetrics(ctx context.Context) (*models.MetricsBundle, error) {
	var bundle models.MetricsBundle
	if err := c.do(ctx, http.MethodGet, "/api/dashboard-metrics", nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// PassQR downloads the PNG badge of a pass
func (c *Client) PassQR(ctx context.Context, id int64) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/passes/%d/qr", id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	token := c.Token
	if c.Tokens != nil {
		if token, err = c.Tokens.Token(ctx); err != nil {
			return nil, fmt.Errorf("get api token: %w", err)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body utils.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
	}
	return apiErr
}

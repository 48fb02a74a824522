package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"furnishai-web/internal/models"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: HTTP error! status: %d", e.Method, e.Path, e.StatusCode)
}

// BackendClient talks to the recommendation backend. Every call runs on the
// caller's context, so cancelling the context aborts the request.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

// NewBackendClient builds a client for baseURL. A zero timeout leaves calls
// bounded only by their context.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Recommend posts the user's text and session id to /rag-recommend.
func (c *BackendClient) Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error) {
	var resp models.RecommendResponse
	if err := c.do(ctx, http.MethodPost, "/rag-recommend", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListProducts fetches the full catalogue from /analytics.
func (c *BackendClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/analytics", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode backend request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "failed to build backend request %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "backend request %s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode backend response %s %s", method, path)
	}
	return nil
}

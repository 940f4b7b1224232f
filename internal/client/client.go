// Package client is the typed HTTP transport for the remote session service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/strainix/timetrack/internal/models"
)

// ErrNotFound maps a 404 from the service: the session is missing or already
// soft-deleted.
var ErrNotFound = errors.New("timetrack api: not found")

type Client struct {
	httpClient *http.Client
	baseURL    string
	deviceID   string
}

func New(httpClient *http.Client, baseURL, deviceID string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		deviceID:   strings.TrimSpace(deviceID),
	}
}

type UserCodeResponse struct {
	Code string `json:"code"`
}

type ListSessionsResponse struct {
	Sessions  []models.Session `json:"sessions"`
	Timestamp int64            `json:"timestamp"`
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

type UpdateSessionResponse struct {
	Updated   bool  `json:"updated"`
	Timestamp int64 `json:"timestamp"`
}

type DeleteSessionResponse struct {
	Deleted   bool  `json:"deleted"`
	Timestamp int64 `json:"timestamp"`
}

type SyncResponse struct {
	Results   []models.OperationResult `json:"results"`
	Timestamp int64                    `json:"timestamp"`
}

func (c *Client) GenerateUserCode(ctx context.Context) (*UserCodeResponse, error) {
	var out UserCodeResponse
	if err := c.do(ctx, http.MethodPost, "/api/user-code", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSessions(ctx context.Context, code string, since int64) (*ListSessionsResponse, error) {
	path := "/api/sessions/" + code
	if since > 0 {
		path += "?since=" + strconv.FormatInt(since, 10)
	}
	var out ListSessionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, code string, startTime int64) (*CreateSessionResponse, error) {
	body := map[string]int64{"startTime": startTime}
	var out CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+code, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSession(ctx context.Context, code, id string, data models.OpData) (*UpdateSessionResponse, error) {
	var out UpdateSessionResponse
	if err := c.do(ctx, http.MethodPut, "/api/sessions/"+code+"/"+id, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, code, id string) (*DeleteSessionResponse, error) {
	var out DeleteSessionResponse
	if err := c.do(ctx, http.MethodDelete, "/api/sessions/"+code+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SyncOperations(ctx context.Context, code string, ops []models.Operation) (*SyncResponse, error) {
	var out SyncResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync/"+code, ops, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	var eb struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	if strings.TrimSpace(eb.Error) != "" {
		return fmt.Errorf("timetrack api %d: %s", resp.StatusCode, eb.Error)
	}
	return fmt.Errorf("timetrack api status %d", resp.StatusCode)
}

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

	"github.com/kerbside/parkd/internal/facility"
	"github.com/kerbside/parkd/internal/model"
)

// HTTPClient implements ParkdClient using the parkd HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Lifecycle operations ---

func (c *HTTPClient) RequestEntry(ctx context.Context, plate string) (*facility.EntryResult, error) {
	var res facility.EntryResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/entry", map[string]string{"plate": plate}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) RequestExit(ctx context.Context, plate string) (*facility.ExitResult, error) {
	var res facility.ExitResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/exit", map[string]string{"plate": plate}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SettlePayment(ctx context.Context, sessionID string) (*facility.SettleResult, error) {
	var res facility.SettleResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/payment", map[string]string{"session_id": sessionID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) QuoteFee(ctx context.Context, sessionID string, at *time.Time) (*FeeQuote, error) {
	q := url.Values{}
	q.Set("session_id", sessionID)
	if at != nil {
		q.Set("at", at.UTC().Format(time.RFC3339))
	}
	var quote FeeQuote
	if err := c.doJSON(ctx, http.MethodGet, "/v1/fee?"+q.Encode(), nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// --- Sessions ---

func (c *HTTPClient) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	q := url.Values{}
	if req.Open != nil {
		q.Set("open", strconv.FormatBool(*req.Open))
	}
	if req.Unpaid {
		q.Set("unpaid", "true")
	}
	if req.Plate != "" {
		q.Set("plate", req.Plate)
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}

	path := "/v1/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListSessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) GetSessionEvents(ctx context.Context, id string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Blocklist ---

func (c *HTTPClient) ToggleBlock(ctx context.Context, plate, actor string) (*ToggleBlockResponse, error) {
	body := map[string]string{"plate": plate}
	if actor != "" {
		body["actor"] = actor
	}
	var resp ToggleBlockResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/blocklist/toggle", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ListBlocked(ctx context.Context) ([]string, error) {
	var resp struct {
		Plates []string `json:"plates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/blocklist", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Plates, nil
}

// --- Gates ---

func (c *HTTPClient) ListGates(ctx context.Context) ([]model.GateStatus, error) {
	var resp struct {
		Gates []model.GateStatus `json:"gates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/gates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Gates, nil
}

func (c *HTTPClient) OpenGate(ctx context.Context, gate model.GateID, plate string) (*OpenGateResponse, error) {
	body := map[string]string{}
	if plate != "" {
		body["plate"] = plate
	}
	var resp OpenGateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gates/"+url.PathEscape(gate.String())+"/open", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) CloseGate(ctx context.Context, gate model.GateID) (*model.GateStatus, error) {
	var resp struct {
		Gate model.GateStatus `json:"gate"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gates/"+url.PathEscape(gate.String())+"/close", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Gate, nil
}

func (c *HTTPClient) HoldGate(ctx context.Context, gate model.GateID, hold bool) (*model.GateStatus, error) {
	var resp struct {
		Gate model.GateStatus `json:"gate"`
	}
	body := map[string]bool{"hold": hold}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gates/"+url.PathEscape(gate.String())+"/hold", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Gate, nil
}

// --- Dashboard ---

func (c *HTTPClient) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.doJSON(ctx, http.MethodGet, "/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

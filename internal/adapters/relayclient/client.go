package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
)

const (
	maxResponseBytes      = 32 << 20
	defaultRequestTimeout = 30 * time.Second
	pollSlack             = 10 * time.Second
	// relayMaxPollTimeout bounds how long the relay may hold a poll that
	// leaves the timeout to the relay default.
	relayMaxPollTimeout = 120 * time.Second
)

// APIError is a non-2xx relay response. It unwraps to the matching domain
// sentinel so callers can use errors.Is across the wire.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "session_not_found":
		return domain.ErrSessionNotFound
	case "session_id_taken":
		return domain.ErrSessionIDTaken
	case "malformed_annotation":
		return domain.ErrMalformedAnnotation
	case "registration_exhausted":
		return domain.ErrRegistrationExhausted
	default:
		return nil
	}
}

type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

type PollResponse struct {
	Annotations []domain.Annotation `json:"annotations"`
	Reason      domain.PollReason   `json:"reason"`
}

type SubmitResponse struct {
	ID           string           `json:"id"`
	Delivered    bool             `json:"delivered"`
	SessionFound bool             `json:"sessionFound"`
	SessionID    domain.SessionID `json:"sessionId,omitempty"`
	Archived     bool             `json:"archived"`
}

type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type sessionIDResponse struct {
	SessionID domain.SessionID `json:"sessionId"`
}

type sessionResponse struct {
	Session *domain.SessionSummary `json:"session"`
}

type sessionsResponse struct {
	Sessions []domain.SessionSummary `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) Register(ctx context.Context, consumerID string) (domain.SessionID, error) {
	var resp sessionIDResponse
	body := map[string]string{"consumerId": consumerID}
	if err := c.do(ctx, http.MethodPost, "/api/session/register", nil, body, &resp, 0); err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}
	return resp.SessionID, nil
}

func (c *Client) Create(ctx context.Context, consumerID string, sessionID string) (domain.SessionID, error) {
	var resp sessionIDResponse
	body := map[string]string{"consumerId": consumerID, "sessionId": sessionID}
	if err := c.do(ctx, http.MethodPost, "/api/session/create", nil, body, &resp, 0); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return resp.SessionID, nil
}

func (c *Client) LinkURL(ctx context.Context, id domain.SessionID, prefix string) error {
	body := map[string]string{"sessionId": string(id), "url": prefix}
	if err := c.do(ctx, http.MethodPost, "/api/session/link-url", nil, body, nil, 0); err != nil {
		return fmt.Errorf("link url: %w", err)
	}
	return nil
}

func (c *Client) FindByURL(ctx context.Context, target string) (domain.SessionSummary, bool, error) {
	var resp sessionResponse
	query := url.Values{"url": {target}}
	if err := c.do(ctx, http.MethodGet, "/api/session/find-by-url", query, nil, &resp, 0); err != nil {
		return domain.SessionSummary{}, false, fmt.Errorf("find session by url: %w", err)
	}
	if resp.Session == nil {
		return domain.SessionSummary{}, false, nil
	}
	return *resp.Session, true, nil
}

func (c *Client) Get(ctx context.Context, id domain.SessionID) (domain.SessionSummary, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/session/"+url.PathEscape(string(id)), nil, nil, &resp, 0); err != nil {
		return domain.SessionSummary{}, fmt.Errorf("get session: %w", err)
	}
	if resp.Session == nil {
		return domain.SessionSummary{}, errors.New("get session: response missing session")
	}
	return *resp.Session, nil
}

// Poll issues one long poll. A zero timeout lets the relay pick its default.
func (c *Client) Poll(ctx context.Context, id domain.SessionID, timeout time.Duration) (PollResponse, error) {
	query := url.Values{"sessionId": {string(id)}}
	hold := relayMaxPollTimeout
	if timeout > 0 {
		query.Set("timeout", timeout.String())
		hold = timeout
	}

	var resp PollResponse
	if err := c.do(ctx, http.MethodGet, "/api/session/poll", query, nil, &resp, hold); err != nil {
		return PollResponse{}, fmt.Errorf("poll session: %w", err)
	}
	if resp.Annotations == nil {
		resp.Annotations = []domain.Annotation{}
	}
	return resp, nil
}

func (c *Client) Submit(ctx context.Context, note string, element domain.Element) (SubmitResponse, error) {
	var resp SubmitResponse
	body := map[string]any{"note": note, "element": element}
	if err := c.do(ctx, http.MethodPost, "/api/annotation", nil, body, &resp, 0); err != nil {
		return SubmitResponse{}, fmt.Errorf("submit annotation: %w", err)
	}
	return resp, nil
}

func (c *Client) Sessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var resp sessionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, nil, &resp, 0); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if resp.Sessions == nil {
		resp.Sessions = []domain.SessionSummary{}
	}
	return resp.Sessions, nil
}

func (c *Client) Archived(ctx context.Context, sessionID domain.SessionID, limit int) ([]domain.Annotation, error) {
	query := url.Values{}
	if sessionID != "" {
		query.Set("sessionId", string(sessionID))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp []domain.Annotation
	if err := c.do(ctx, http.MethodGet, "/api/annotations", query, nil, &resp, 0); err != nil {
		return nil, fmt.Errorf("list archived annotations: %w", err)
	}
	if resp == nil {
		resp = []domain.Annotation{}
	}
	return resp, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp, 0); err != nil {
		return Health{}, fmt.Errorf("check relay health: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any, pollTimeout time.Duration) error {
	endpoint, err := buildURL(c.BaseURL, path, query)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx, pollTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, limited)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// requestContext bounds a request when the caller has not. Polls get their
// own timeout plus slack so the relay answers before the client gives up.
func (c *Client) requestContext(ctx context.Context, pollTimeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	if pollTimeout > 0 && pollTimeout+pollSlack > requestTimeout {
		requestTimeout = pollTimeout + pollSlack
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeAPIError(statusCode int, body io.Reader) error {
	apiErr := &APIError{StatusCode: statusCode}

	var payload errorResponse
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
	}
	return apiErr
}

func buildURL(baseURL string, path string, query url.Values) (string, error) {
	if baseURL == "" {
		return "", errors.New("relay url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("relay url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("relay url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse relay path: %w", err)
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}

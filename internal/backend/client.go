package backend

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
	"strings"
	"time"

	"boostify/internal/metrics"
)

var (
	// ErrAuthExpired is returned when a protected endpoint answers 401.
	ErrAuthExpired = errors.New("backend: session expired")
	// ErrNoSession is returned, without a network call, when a protected
	// endpoint is called with no token.
	ErrNoSession = errors.New("backend: no session token")
)

// StatusError carries a non-2xx response that is not an authorization failure.
type StatusError struct {
	Status  int
	Body    string
	Message string // "message" field of a JSON error body, when present
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Body)
}

// NetworkError wraps transport and decode failures.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Request describes one call to the attendance backend.
type Request struct {
	Method string
	Path   string
	Page   int // sent as ?page= when > 0
	Body   any // JSON encoded unless it is a *Multipart
	Public bool
}

// Client calls the attendance backend REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client. A zero timeout leaves calls bounded only by the request context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Do issues r with the bearer token attached and decodes a JSON response into
// out (which may be nil). It never retries.
func (c *Client) Do(ctx context.Context, token string, r Request, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.BackendLatency.WithLabelValues(r.Path).Observe(time.Since(start).Seconds())
		metrics.BackendRequests.WithLabelValues(r.Path, outcome(err)).Inc()
	}()

	if token == "" && !r.Public {
		return ErrNoSession
	}

	req, err := c.newRequest(ctx, token, r)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &NetworkError{Op: r.Method + " " + r.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !r.Public {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrAuthExpired
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return newStatusError(resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: "decode " + r.Path, Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, token string, r Request) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + r.Path)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", r.Path, err)
	}
	if r.Page > 0 {
		q := u.Query()
		q.Set("page", strconv.Itoa(r.Page))
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch b := r.Body.(type) {
	case nil:
	case *Multipart:
		body = bytes.NewReader(b.data)
		contentType = b.contentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", r.Path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func newStatusError(status int, body []byte) *StatusError {
	e := &StatusError{Status: status, Body: strings.TrimSpace(string(body))}
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &msg) == nil {
		e.Message = msg.Message
	}
	return e
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

func outcome(err error) string {
	var (
		se *StatusError
		ne *NetworkError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, ErrNoSession):
		return "no_session"
	case errors.As(err, &se):
		return "status_error"
	case errors.As(err, &ne):
		return "network_error"
	default:
		return "error"
	}
}

// Reachable reports whether the backend answers HTTP at all. Any status code
// counts as reachable; only transport failures do not.
func (c *Client) Reachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend unavailable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

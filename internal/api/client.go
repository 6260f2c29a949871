package api

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

// ServerError is a failure reported by the backend itself: a non-2xx
// status, or a 2xx body carrying success:false. Message is the
// server-supplied message and may be empty; callers substitute their
// own fallback text when it is.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error (status %d)", e.StatusCode)
}

// Client calls the attendance backend. All endpoints except Login
// require a bearer token, passed per call since the session owns it.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/login", "", body, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, token string) (*UserProfile, error) {
	var out struct {
		User *UserProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/user/me", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ListAttendance fetches all attendance records for the authenticated
// user. The backend does not paginate or filter.
func (c *Client) ListAttendance(ctx context.Context, token string) ([]AttendanceRecord, error) {
	var out struct {
		Data []AttendanceRecord `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/user/viewAttendance", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SubmitAttendance uploads one attendance submission.
func (c *Client) SubmitAttendance(ctx context.Context, token string, sub AttendanceSubmission) error {
	return c.do(ctx, http.MethodPost, "/api/v1/user/attendance", token, sub, nil)
}

// CalculateDistance asks the backend to compute point-to-point
// distances between the user's records on one calendar date
// (YYYY-MM-DD).
func (c *Client) CalculateDistance(ctx context.Context, token, date string) ([]DistanceAnnotation, error) {
	var out struct {
		PointToPointDistances []DistanceAnnotation `json:"pointToPointDistances"`
	}
	body := map[string]string{"date": date}
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/calculateDistance", token, body, &out); err != nil {
		return nil, err
	}
	return out.PointToPointDistances, nil
}

// do issues one JSON request and decodes the response into out.
// Failure convention shared by every endpoint: a transport error is
// returned wrapped; a non-2xx status or a body-level success:false
// becomes a *ServerError carrying any server message. A 2xx response
// without a success field is a success.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	// The body may not be JSON at all (proxies, crash pages); an
	// unparseable envelope on a non-2xx still fails with the status.
	var envelope struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	if envelope.Success != nil && !*envelope.Success {
		return &ServerError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

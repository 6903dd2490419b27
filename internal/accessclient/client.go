package accessclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/pkg/logger"
	"github.com/sony/gobreaker"
)

const (
	pathAccess   = "/api/tourist/dashboard/access"
	pathVerify   = "/api/tourist/dashboard/verify"
	pathRequests = "/api/tourist/dashboard/requests"
	pathBooking  = "/api/tourist/requests"

	maxErrorBody = 64 << 10
)

// APIError is returned for every non-2xx response. Message holds the
// server-supplied {"error": ...} text when there was one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// ServerMessage extracts the server-supplied message from err, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Options struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
	HTTPClient      *http.Client
}

// Client talks to the external access and request API.
type Client struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func New(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 3
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		cb:      newBreaker("access-api", failures, opts.BreakerOpenFor),
	}
}

func newBreaker(name string, failures uint32, openFor time.Duration) *gobreaker.CircuitBreaker {
	if openFor == 0 {
		openFor = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// A rejected code or unknown email is the API working as intended.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
		},
	})
}

// RequestCode asks the API to email a one-time code to email.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, pathAccess, "", body, nil)
}

// VerifyCode exchanges email+code for an opaque bearer token.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "code": code}
	if err := c.do(ctx, http.MethodPost, pathVerify, "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("verify response did not include a token")
	}
	return out.Token, nil
}

// FetchRequests lists the tourist's requests using the bearer token.
// Records are decoded one by one: a record with bad dates is kept with
// empty dates, and a record that does not decode at all is dropped.
func (c *Client) FetchRequests(ctx context.Context, token string) ([]domain.TouristRequest, error) {
	var out struct {
		Requests []json.RawMessage `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, pathRequests, token, nil, &out); err != nil {
		return nil, err
	}

	reqs := make([]domain.TouristRequest, 0, len(out.Requests))
	for i, raw := range out.Requests {
		req, err := domain.DecodeTouristRequest(raw)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidDates):
			logger.WarnContext(ctx, "Tourist request has invalid dates", "index", i, "request", req.ID, "error", err)
		default:
			logger.WarnContext(ctx, "Skipping undecodable tourist request", "index", i, "error", err)
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// CreateRequest submits a booking form.
func (c *Client) CreateRequest(ctx context.Context, req *domain.BookingRequest) (*domain.BookingCreated, error) {
	var out domain.BookingCreated
	if err := c.do(ctx, http.MethodPost, pathBooking, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, bearer, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("access api unavailable: %w", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, bearer string, in, out any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if requestID := logger.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	logger.DebugContext(ctx, "Calling access api", "method", method, "url", url)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &errBody) == nil {
			apiErr.Message = strings.TrimSpace(errBody.Error)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package apiclient talks to the planner user API on behalf of a signed-in user.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultTokenTimeout   = 5 * time.Second

	// Error bodies beyond this are not worth reading.
	maxErrorBody = 64 << 10
)

var errTokenTimeout = errors.New("token provider timed out")

// Options tunes a Client. Zero values fall back to the defaults.
type Options struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	TokenTimeout   time.Duration
}

// Client sends JSON requests to the API, attaching a bearer token when one is available.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         *TokenSource
	requestTimeout time.Duration
	tokenTimeout   time.Duration
}

// New creates a client for baseURL (e.g. "http://localhost:5000/api").
func New(baseURL string, tokens *TokenSource, opts Options) *Client {
	if tokens == nil {
		tokens = NewTokenSource()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.TokenTimeout <= 0 {
		opts.TokenTimeout = DefaultTokenTimeout
	}
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     opts.HTTPClient,
		tokens:         tokens,
		requestTimeout: opts.RequestTimeout,
		tokenTimeout:   opts.TokenTimeout,
	}
}

// Tokens returns the source the client reads bearer tokens from.
func (c *Client) Tokens() *TokenSource {
	return c.tokens
}

// Do sends one request. body is JSON encoded when non-nil and a 2xx response is decoded
// into out when out is non-nil. Every failure is an *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Method: method, Path: path, Kind: KindUnknown, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Method: method, Path: path, Kind: KindUnknown, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(reqCtx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTransportTimeout(ctx, err) {
			return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Kind: KindTimeout, Err: err}
		}
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Kind: KindUnknown, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// token asks the provider for a token, giving up after the token timeout.
// Failures are logged and the request goes out unauthenticated.
func (c *Client) token(ctx context.Context) string {
	provider := c.tokens.Provider()
	if provider == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.tokenTimeout)
	defer cancel()

	type result struct {
		token string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		token, err := provider(ctx)
		ch <- result{token, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = errTokenTimeout
	}

	if res.err != nil {
		log.Warn().Err(res.err).Msg("Could not get access token, sending request without it")
		return ""
	}
	if res.token == "" {
		log.Warn().Msg("Token provider returned an empty token, sending request without it")
	}
	return res.token
}

func transportError(callerCtx context.Context, method, path string, err error) *Error {
	if isTransportTimeout(callerCtx, err) {
		return &Error{Method: method, Path: path, Kind: KindTimeout, Err: err}
	}
	return &Error{Method: method, Path: path, Kind: KindUnknown, Err: err}
}

// errorBody covers both {"error": "..."} and echo's {"message": "..."}.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func responseError(method, path string, resp *http.Response) *Error {
	apiErr := &Error{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Kind:       kindForStatus(resp.StatusCode),
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if len(raw) > 0 && json.Unmarshal(raw, &eb) == nil {
		apiErr.Message = eb.Error
		if apiErr.Message == "" {
			apiErr.Message = eb.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return apiErr
}

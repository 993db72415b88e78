// Package api is the HTTP transport to the GoBarber API. It injects the bearer
// token, decodes JSON bodies and turns every non-2xx answer into an error; the
// only status it interprets itself is 401, which is reported to the registered
// unauthorized handler.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/gobarber/internal/logger"
	"github.com/patric-chuzhbe/gobarber/internal/models"
)

var (
	// ErrTransport marks every failed request: network failures and non-2xx answers.
	ErrTransport = errors.New("transport error")

	// ErrUnauthorized marks a 401 answer.
	ErrUnauthorized = errors.New("credentials rejected")
)

// StatusError is a non-2xx answer. It matches ErrTransport, and ErrUnauthorized
// when Status is 401.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}

	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}

	return false
}

// Client talks to the GoBarber API.
type Client struct {
	http *resty.Client

	mu             sync.RWMutex
	tokenSource    func() string
	onUnauthorized func(ctx context.Context, token string)
}

type InitOption func(*resty.Client)

func WithTimeout(timeout time.Duration) InitOption {
	return func(client *resty.Client) {
		client.SetTimeout(timeout)
	}
}

func WithUserAgent(userAgent string) InitOption {
	return func(client *resty.Client) {
		if userAgent != "" {
			client.SetHeader("User-Agent", userAgent)
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, options ...InitOption) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	for _, option := range options {
		option(httpClient)
	}

	return &Client{
		http: logger.WithLoggingRestyHooks(httpClient),
	}
}

// SetTokenSource sets the function returning the current bearer token.
func (c *Client) SetTokenSource(tokenSource func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokenSource = tokenSource
}

// OnUnauthorized sets the handler called when an authenticated request is
// answered with 401. The handler receives the token that was rejected.
func (c *Client) OnUnauthorized(handler func(ctx context.Context, token string)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onUnauthorized = handler
}

// Post sends body as JSON with the bearer token and decodes the answer into out (if not nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, true, jsonBody(body), out)
}

// PostAnonymous is Post without the bearer token, for public endpoints such as
// sign-in, sign-up and password recovery. A 401 never triggers the unauthorized handler.
func (c *Client) PostAnonymous(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, false, jsonBody(body), out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, true, jsonBody(body), out)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, true, nil, out)
}

// PatchMultipart uploads content as the form file field.
func (c *Client) PatchMultipart(
	ctx context.Context,
	path string,
	field string,
	fileName string,
	content io.Reader,
	out any,
) error {
	return c.do(ctx, http.MethodPatch, path, true, func(request *resty.Request) {
		request.SetFileReader(field, fileName, content)
	}, out)
}

func jsonBody(body any) func(*resty.Request) {
	return func(request *resty.Request) {
		if body != nil {
			request.SetHeader("Content-Type", "application/json").SetBody(body)
		}
	}
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.tokenSource == nil {
		return ""
	}

	return c.tokenSource()
}

func (c *Client) unauthorizedHandler() func(ctx context.Context, token string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.onUnauthorized
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	authenticated bool,
	prepare func(*resty.Request),
	out any,
) error {
	request := c.http.R().
		SetContext(ctx).
		SetError(&models.APIError{})
	if out != nil {
		request.SetResult(out)
	}

	token := ""
	if authenticated {
		token = c.currentToken()
	}
	if token != "" {
		request.SetAuthToken(token)
	}
	if prepare != nil {
		prepare(request)
	}

	response, err := request.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	if response.IsSuccess() {
		return nil
	}

	statusErr := &StatusError{
		Method: method,
		Path:   path,
		Status: response.StatusCode(),
	}
	if apiErr, ok := response.Error().(*models.APIError); ok && apiErr != nil {
		statusErr.Message = apiErr.Message
	}

	if statusErr.Status == http.StatusUnauthorized && token != "" {
		if handler := c.unauthorizedHandler(); handler != nil {
			logger.Log.Infoln("API rejected the session token", "path", path)
			handler(ctx, token)
		}
	}

	return statusErr
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/observability"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	GetToken(ctx context.Context) string
}

// Doer is the subset of *http.Client used here.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks JSON to the backend and normalizes every failure into *util.APIError.
type Client struct {
	baseURL        string
	http           Doer
	tokens         TokenSource
	logger         *zap.Logger
	metrics        *observability.Metrics
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request and error counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New builds a client rooted at baseURL.
func New(baseURL string, tokens TokenSource, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// OnUnauthorized registers a hook run when an authenticated request gets a 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.onUnauthorized = fn
}

// Request describes one call.
type Request struct {
	Method        string
	Path          string
	Body          any
	Authenticated bool
}

// Do sends a JSON request and decodes a 2xx body into out (when non-nil).
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return apperrors.NewClientError(fmt.Sprintf("encode request: %v", err))
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, r, body)
	if err != nil {
		return err
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, r, req, out)
}

// Upload sends a single file as multipart/form-data under field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return apperrors.NewClientError(fmt.Sprintf("build upload: %v", err))
	}
	if _, err := io.Copy(part, file); err != nil {
		return apperrors.NewClientError(fmt.Sprintf("read upload: %v", err))
	}
	if err := mw.Close(); err != nil {
		return apperrors.NewClientError(fmt.Sprintf("finish upload: %v", err))
	}

	r := Request{Method: http.MethodPost, Path: path, Authenticated: true}
	req, err := c.newRequest(ctx, r, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(ctx, r, req, out)
}

func (c *Client) newRequest(ctx context.Context, r Request, body io.Reader) (*http.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewClientError(err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return nil, apperrors.NewClientError(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if r.Authenticated && c.tokens != nil {
		if tok := c.tokens.GetToken(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, r Request, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordError(r.Path, r.Method, string(apperrors.KindNetwork))
		c.logger.Debug("request failed without response",
			zap.String("method", r.Method), zap.String("path", r.Path), zap.Error(err))
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(r.Path, r.Method, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeServerError(resp.StatusCode, data)
		c.metrics.RecordError(r.Path, r.Method, string(apiErr.Kind))
		c.logger.Debug("request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		if resp.StatusCode == http.StatusUnauthorized && r.Authenticated && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewServerError(resp.StatusCode, "malformed response body", []string{err.Error()})
	}
	return nil
}

type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

// decodeServerError reads {message, error, errors} where error may be a string
// or an object carrying its own message.
func decodeServerError(status int, data []byte) *apperrors.APIError {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apperrors.NewServerError(status, "", nil)
	}
	msg := body.Message
	if msg == "" && len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil {
			msg = s
		} else {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil {
				msg = nested.Message
			}
		}
	}
	return apperrors.NewServerError(status, msg, decodeDetails(body.Errors))
}

func decodeDetails(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var objects []map[string]any
	if err := json.Unmarshal(raw, &objects); err == nil {
		out := make([]string, 0, len(objects))
		for _, o := range objects {
			if m, ok := o["message"].(string); ok {
				out = append(out, m)
			} else if m, ok := o["msg"].(string); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// IsNetwork reports whether err came from a request that never got a response.
func IsNetwork(err error) bool {
	var apiErr *apperrors.APIError
	return errors.As(err, &apiErr) && apiErr.Kind == apperrors.KindNetwork
}

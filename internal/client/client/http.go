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
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/netx"
	"github.com/google/uuid"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger

	mu    sync.RWMutex
	token string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the API rooted at baseURL. Every request
// is bounded by timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, logger logging.Logger) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
	c.http = &http.Client{
		Timeout:   timeout,
		Transport: &authTransport{next: http.DefaultTransport, token: c.Token},
	}
	return c
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the credential currently attached to requests.
func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// authTransport stamps the bearer token and a request id on every request.
type authTransport struct {
	next  http.RoundTripper
	token func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if token := t.token(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	if req.Header.Get(common.RequestIDHeaderName) == "" {
		req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}
	return t.next.RoundTrip(req)
}

type endpoint int

const (
	endpointLogin endpoint = iota
	endpointRegister
	endpointResource
)

func (c *HTTPClient) do(ctx context.Context, method, path string, in any, kind endpoint) ([]byte, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, c.mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.logger.Debug(ctx, "request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)
	if err != nil {
		return nil, c.mapTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapStatus(resp.StatusCode, data, kind)
	}
	return data, nil
}

func (c *HTTPClient) mapTransportError(err error) error {
	if netx.IsTransport(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// mapStatus converts a non-2xx response into the package's error taxonomy.
// Only login treats 400 and 401 as bad credentials; a rejected sign-up is a
// plain *ServerError carrying the server's reason.
func mapStatus(code int, body []byte, kind endpoint) error {
	se := &ServerError{StatusCode: code, Message: serverMessage(code, body)}

	switch {
	case kind == endpointLogin && (code == http.StatusUnauthorized || code == http.StatusBadRequest):
		return &kindError{kind: ErrInvalidCredentials, err: se}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &kindError{kind: ErrUnauthorized, err: se}
	case code == http.StatusNotFound:
		return &kindError{kind: ErrNotFound, err: se}
	case code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout:
		return &kindError{kind: ErrUnavailable, err: se}
	default:
		return se
	}
}

func serverMessage(code int, body []byte) string {
	var e errorDTO
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "HTTP " + strconv.Itoa(code)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", loginRequestDTO{Email: email, Password: password}, endpointLogin)
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/register", registerRequestDTO{Name: name, Email: email, Password: password}, endpointRegister)
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

func (c *HTTPClient) VerifySession(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/tasks", nil, endpointResource)
	return err
}

func (c *HTTPClient) ListTasks(ctx context.Context) ([]models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, "/tasks", nil, endpointResource)
	if err != nil {
		return nil, err
	}
	return decodeTasks(data)
}

func (c *HTTPClient) CreateTask(ctx context.Context, p TaskPayload) (*models.Task, error) {
	data, err := c.do(ctx, http.MethodPost, "/tasks", encodeTask(p), endpointResource)
	if err != nil {
		return nil, err
	}
	return decodeTask(data)
}

func (c *HTTPClient) UpdateTask(ctx context.Context, id int64, p TaskPayload) (*models.Task, error) {
	data, err := c.do(ctx, http.MethodPut, taskPath(id), encodeTask(p), endpointResource)
	if err != nil {
		return nil, err
	}
	return decodeTask(data)
}

func (c *HTTPClient) DeleteTask(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, taskPath(id), nil, endpointResource)
	return err
}

func (c *HTTPClient) ListAllUsers(ctx context.Context) ([]models.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/tasks/admin/users", nil, endpointResource)
	if err != nil {
		return nil, err
	}
	return decodeUsers(data)
}

func (c *HTTPClient) ListAllTasks(ctx context.Context) ([]models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, "/tasks/admin/all-tasks", nil, endpointResource)
	if err != nil {
		return nil, err
	}
	return decodeTasks(data)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

// IsAuthFailure reports whether err means the session is no longer accepted.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

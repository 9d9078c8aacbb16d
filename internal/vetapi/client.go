package vetapi

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/vetbot/internal/observability/metrics"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/pkg/logging"
)

const (
	defaultTimeout = 30 * time.Second

	HeaderSessionID   = "X-Session-ID"
	HeaderUserContext = "X-User-Context"
)

// ErrMissingBaseURL is returned by NewClient when no base URL is configured.
var ErrMissingBaseURL = errors.New("vetapi: base URL required")

// Metadata supplies the ambient session identity attached to every request.
// *session.Manager satisfies it.
type Metadata interface {
	SessionID(ctx context.Context) string
	Context(ctx context.Context) *session.Context
}

// Config describes how to reach the assistant service.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.ClientMetrics
	Tracer     trace.Tracer
}

// Client talks to the remote assistant and scheduling service.
type Client struct {
	baseURL string
	http    *http.Client
	meta    Metadata
	logger  *logging.Logger
	metrics *metrics.ClientMetrics
	tracer  trace.Tracer
}

// NewClient validates the configuration and returns a ready-to-use client.
func NewClient(cfg Config, meta Metadata) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if meta == nil {
		return nil, errors.New("vetapi: session metadata required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("vetbot.internal.vetapi")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		meta:    meta,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
	}, nil
}

// APIError is a rejection reported by the service, either through a non-2xx
// status or a {success:false} envelope.
type APIError struct {
	Operation        string
	Status           int
	Message          string
	ValidationErrors []FieldError
	SlotTaken        bool
	Body             string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status > 0 {
		return fmt.Sprintf("vetapi: %s: status %d: %s", e.Operation, e.Status, msg)
	}
	return fmt.Sprintf("vetapi: %s: %s", e.Operation, msg)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type envelope struct {
	Success          bool            `json:"success"`
	Data             json.RawMessage `json:"data"`
	Error            string          `json:"error"`
	Message          string          `json:"message"`
	ValidationErrors FieldErrors     `json:"validationErrors"`
	SlotTaken        bool            `json:"slotTaken"`
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, payload any, out any) error {
	ctx, span := c.tracer.Start(ctx, "vetapi."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("vetapi.path", path),
	))
	defer span.End()
	start := time.Now()

	status, err := c.roundTrip(ctx, op, method, path, query, payload, out)
	label := "ok"
	switch {
	case err == nil:
	case ctx.Err() != nil:
		label = "canceled"
	case status > 0:
		label = strconv.Itoa(status)
	default:
		label = "error"
	}
	c.metrics.ObserveRequest(op, label, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, label)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("vetapi: %s: encode payload: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("vetapi: %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachMetadata(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vetapi: %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("vetapi: %s: read response: %w", op, err)
	}

	var env envelope
	decodeErr := error(nil)
	if len(bytes.TrimSpace(data)) > 0 {
		decodeErr = json.Unmarshal(data, &env)
	}

	rejected := decodeErr == nil && len(data) > 0 && !env.Success
	if resp.StatusCode < 200 || resp.StatusCode > 299 || rejected {
		apiErr := &APIError{
			Operation:        op,
			Status:           resp.StatusCode,
			Message:          firstNonEmpty(env.Error, env.Message),
			ValidationErrors: env.ValidationErrors,
			SlotTaken:        env.SlotTaken || (resp.StatusCode == http.StatusConflict && slotOperations[op]),
			Body:             truncate(string(data), 300),
		}
		if apiErr.Message == "" && decodeErr != nil {
			apiErr.Message = apiErr.Body
		}
		c.logger.Warn("vetapi: request rejected", "operation", op, "status", resp.StatusCode, "error", apiErr.Message)
		return resp.StatusCode, apiErr
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("vetapi: %s: decode response: %w", op, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("vetapi: %s: decode data: %w", op, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) attachMetadata(ctx context.Context, req *http.Request) {
	if id := c.meta.SessionID(ctx); id != "" {
		req.Header.Set(HeaderSessionID, id)
	}
	if uc := c.meta.Context(ctx); uc != nil {
		if data, err := json.Marshal(uc); err == nil {
			req.Header.Set(HeaderUserContext, string(data))
		}
	}
}

// slotOperations are the calls where a 409 means the requested time is booked.
var slotOperations = map[string]bool{
	"appointments.create": true,
	"appointments.update": true,
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

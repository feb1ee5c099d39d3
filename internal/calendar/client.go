// Package calendar is a client for the Cal.com v2 API.
package calendar

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
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
	"github.com/chadn/ai-chatbot-meetings/pkg/tracing"
)

// Defaults for the Cal.com v2 API.
const (
	DefaultBaseURL           = "https://api.cal.com/v2"
	DefaultVersionSlots      = "2024-09-04"
	DefaultVersionBookings   = "2024-08-13"
	DefaultVersionEventTypes = "2024-06-14"
	DefaultLanguage          = "en"
	DefaultPageSize          = 100
)

// Config holds the client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Timezone          string
	Language          string
	VersionSlots      string
	VersionBookings   string
	VersionEventTypes string
	PageSize          int
	HTTPClient        *http.Client
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.VersionSlots == "" {
		c.VersionSlots = DefaultVersionSlots
	}
	if c.VersionBookings == "" {
		c.VersionBookings = DefaultVersionBookings
	}
	if c.VersionEventTypes == "" {
		c.VersionEventTypes = DefaultVersionEventTypes
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// Client talks to one Cal.com account. The resolved username and event
// types are cached for the lifetime of the client.
type Client struct {
	cfg    Config
	logger *logger.Logger

	mu         sync.Mutex
	username   string
	eventTypes []EventType
	resolved   bool
}

// NewClient creates a calendar client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Global()
	}
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: log.Named("calendar"),
	}
}

// Timezone returns the display timezone.
func (c *Client) Timezone() string {
	return c.cfg.Timezone
}

// envelope is the status/data wrapper around every Cal.com v2 response.
type envelope struct {
	Status     string          `json:"status"`
	Data       json.RawMessage `json:"data"`
	Slots      json.RawMessage `json:"slots"`
	Pagination *pagination     `json:"pagination"`
	Message    string          `json:"message"`
	Error      json.RawMessage `json:"error"`
}

type pagination struct {
	HasNextPage *bool `json:"hasNextPage"`
}

// providerMessage extracts a structured error message from an error body.
func (e *envelope) providerMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Error) == 0 {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var text string
	if err := json.Unmarshal(e.Error, &text); err == nil {
		return text
	}
	return ""
}

// validate checks the success/data envelope.
func (e *envelope) validate(op string) error {
	if e.Status != "" && e.Status != "success" {
		return &MalformedResponseError{Op: op, Reason: fmt.Sprintf("status %q", e.Status)}
	}
	if len(e.Data) == 0 {
		return &MalformedResponseError{Op: op, Reason: "missing data"}
	}
	return nil
}

// response is a completed HTTP exchange.
type response struct {
	StatusCode int
	Body       []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *response) decode(op string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, &TransportError{Op: op, StatusCode: r.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return &env, nil
}

// endpointFamily maps a request path to the API family it belongs to.
func endpointFamily(path string) string {
	switch {
	case strings.HasPrefix(path, "/slots"):
		return "slots"
	case strings.HasPrefix(path, "/bookings"):
		return "bookings"
	case strings.HasPrefix(path, "/me"):
		return "me"
	default:
		return "event-types"
	}
}

// apiVersion returns the cal-api-version pinned to a request path. The
// account lookup feeds the event-type listing and shares its version.
func (c *Client) apiVersion(path string) string {
	switch endpointFamily(path) {
	case "slots":
		return c.cfg.VersionSlots
	case "bookings":
		return c.cfg.VersionBookings
	default:
		return c.cfg.VersionEventTypes
	}
}

// do sends one request. A non-nil error means no HTTP response was received.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*response, error) {
	family := endpointFamily(path)
	op := method + " " + path

	ctx, span := tracing.Tracer().Start(ctx, "calendar."+family)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("calendar.endpoint", family),
	)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("cal-api-version", c.apiVersion(path))

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordCalendarRequest(family, "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("calendar request failed", zap.String("op", op), zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordCalendarRequest(family, "error", time.Since(start).Seconds())
		span.RecordError(err)
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	metrics.RecordCalendarRequest(family, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	c.logger.Debug("calendar request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return &response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// statusError converts a non-2xx response into an AuthError or TransportError.
func statusError(op string, resp *response) error {
	var env envelope
	_ = json.Unmarshal(resp.Body, &env)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{StatusCode: resp.StatusCode, Message: env.providerMessage()}
	}

	var cause error
	if msg := env.providerMessage(); msg != "" {
		cause = errors.New(msg)
	}
	return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: cause}
}

// getData performs a GET and returns the validated envelope.
func (c *Client) getData(ctx context.Context, path string, query url.Values) (*envelope, error) {
	op := "GET " + path
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, statusError(op, resp)
	}
	env, err := resp.decode(op)
	if err != nil {
		return nil, err
	}
	if err := env.validate(op); err != nil {
		return nil, err
	}
	return env, nil
}

// ResolveTargetAccount returns the username owning the API key and caches
// its event types. Repeat calls return the cached values.
func (c *Client) ResolveTargetAccount(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.username, nil
	}

	env, err := c.getData(ctx, "/me", nil)
	if err != nil {
		return "", err
	}

	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		return "", &MalformedResponseError{Op: "GET /me", Reason: "unexpected data", Err: err}
	}
	if me.Username == "" {
		return "", &MalformedResponseError{Op: "GET /me", Reason: "missing username"}
	}

	eventTypes, err := c.ListEventTypes(ctx, me.Username)
	if err != nil {
		return "", err
	}

	c.username = me.Username
	c.eventTypes = eventTypes
	c.resolved = true

	c.logger.Info("calendar account resolved",
		zap.String("username", me.Username),
		zap.Int("event_types", len(eventTypes)),
	)

	return c.username, nil
}

// EventTypes returns a copy of the cached event types. It is empty until
// ResolveTargetAccount succeeds.
func (c *Client) EventTypes() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]EventType, len(c.eventTypes))
	copy(out, c.eventTypes)
	return out
}

type rawEventType struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	LengthInMinutes int    `json:"lengthInMinutes"`
	Length          int    `json:"length"`
}

func (r rawEventType) toEventType() EventType {
	duration := r.LengthInMinutes
	if duration == 0 {
		duration = r.Length
	}
	return EventType{ID: r.ID, Title: r.Title, Slug: r.Slug, DurationMinutes: duration}
}

// ListEventTypes fetches the bookable event types of username. The data
// field is either a list or an object of event type groups.
func (c *Client) ListEventTypes(ctx context.Context, username string) ([]EventType, error) {
	const op = "GET /event-types"

	env, err := c.getData(ctx, "/event-types", url.Values{"username": {username}})
	if err != nil {
		return nil, err
	}

	var raws []rawEventType
	if err := json.Unmarshal(env.Data, &raws); err != nil {
		var grouped struct {
			EventTypeGroups []struct {
				EventTypes []rawEventType `json:"eventTypes"`
			} `json:"eventTypeGroups"`
		}
		if gerr := json.Unmarshal(env.Data, &grouped); gerr != nil {
			return nil, &MalformedResponseError{Op: op, Reason: "unexpected data", Err: gerr}
		}
		raws = raws[:0]
		for _, g := range grouped.EventTypeGroups {
			raws = append(raws, g.EventTypes...)
		}
	}

	eventTypes := make([]EventType, 0, len(raws))
	for _, r := range raws {
		eventTypes = append(eventTypes, r.toEventType())
	}
	return eventTypes, nil
}

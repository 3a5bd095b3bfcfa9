// Package loki pushes analytics events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultJob is the job label attached to every stream.
	DefaultJob = "otpauth"

	pushPath        = "/loki/api/v1/push"
	defaultMaxTries = 3
	defaultInitial  = 200 * time.Millisecond
)

// ErrNoBaseURL is returned by Push when the client has no Loki URL.
var ErrNoBaseURL = errors.New("loki: base URL is empty")

// PushRequest is the body of the v1 push API.
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is one label set and its entries. Each value is [unix_ns, line].
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

var invalidLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventEnvelope is the subset of a serialized analytics event used for
// labels. The email stays in the line to keep stream cardinality low.
type eventEnvelope struct {
	Event     string            `json:"event"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details"`
}

// Option configures a Client.
type Option func(*Client)

// WithJob overrides the job label.
func WithJob(job string) Option {
	return func(c *Client) {
		if job != "" {
			c.job = job
		}
	}
}

// WithRetry sets how often a push is tried and the first backoff delay.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *Client) {
		if maxTries > 0 {
			c.maxTries = maxTries
		}
		if initial > 0 {
			c.initial = initial
		}
	}
}

// Client pushes lines to one Loki instance. Network errors, 429 and 5xx
// responses are retried with exponential backoff; other statuses are not.
type Client struct {
	baseURL  string
	job      string
	http     *http.Client
	maxTries uint
	initial  time.Duration
}

// NewClient returns a client for baseURL (e.g. http://localhost:3100).
// httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		job:      DefaultJob,
		http:     httpClient,
		maxTries: defaultMaxTries,
		initial:  defaultInitial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PushEventJSON pushes one serialized analytics event. The event kind and
// failure reason become labels and the event time becomes the entry time.
// Lines that do not parse are pushed as-is at the current time.
func (c *Client) PushEventJSON(ctx context.Context, raw []byte) error {
	labels := map[string]string{}
	at := time.Now().UTC()
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		labels["event"] = env.Event
		labels["reason"] = env.Details["reason"]
		if !env.Timestamp.IsZero() {
			at = env.Timestamp
		}
	}
	return c.Push(ctx, at, string(raw), labels)
}

// Push sends one line. Label values are sanitized and empty ones dropped.
func (c *Client) Push(ctx context.Context, at time.Time, line string, labels map[string]string) error {
	if c.baseURL == "" {
		return ErrNoBaseURL
	}
	stream := map[string]string{"job": c.job}
	for k, v := range labels {
		if v = invalidLabelChars.ReplaceAllString(strings.TrimSpace(v), "_"); v != "" {
			stream[k] = v
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: stream,
		Values: [][]string{{strconv.FormatInt(at.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return fmt.Errorf("loki: encode: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.send(ctx, payload)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Err(err).Dur("next_retry", next).Msg("loki: push failed, retrying")
		}),
	)
	return err
}

func (c *Client) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("loki: request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("loki: push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("loki: push returned %s", resp.Status)
	default:
		return backoff.Permanent(fmt.Errorf("loki: push returned %s", resp.Status))
	}
}

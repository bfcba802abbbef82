package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/logging"
)

// Interaction is one observed request/response exchange.
type Interaction struct {
	ID              string             `json:"id"`
	Service         string             `json:"service"`
	Consumer        string             `json:"consumer,omitempty"`
	ConsumerVersion string             `json:"consumerVersion,omitempty"`
	Operation       string             `json:"operation,omitempty"`
	SpecType        contract.SpecType  `json:"specType,omitempty"`
	Matched         bool               `json:"matched"`
	Request         *contract.Request  `json:"request,omitempty"`
	Response        *contract.Response `json:"response,omitempty"`
	Hash            string             `json:"hash,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// FixtureProposal is a captured exchange offered as a draft fixture.
type FixtureProposal struct {
	Service   string                 `json:"service"`
	Operation string                 `json:"operation"`
	SpecType  contract.SpecType      `json:"specType"`
	Status    contract.FixtureStatus `json:"status"`
	Source    contract.FixtureSource `json:"source"`
	Data      contract.FixtureData   `json:"data"`
	Hash      string                 `json:"hash,omitempty"`
}

// Sink receives interactions from transport adapters. Client implements
// it; tests substitute their own.
type Sink interface {
	RecordInteraction(in Interaction)
}

// Option configures a Client.
type Option func(*Client)

// WithBatchSize sets how many records accumulate before a flush.
func WithBatchSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

// WithFlushInterval sets the background flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.flushInterval = d
		}
	}
}

// WithHTTPClient sets the HTTP client used for uploads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client is an asynchronous batching uploader. Interactions go to
// POST {base}/api/interactions, fixture proposals to POST
// {base}/api/fixtures. Safe for concurrent use.
type Client struct {
	baseURL       string
	client        *http.Client
	log           *slog.Logger
	batchSize     int
	flushInterval time.Duration

	mu           sync.Mutex
	interactions []Interaction
	fixtures     []FixtureProposal
	seen         map[string]struct{}
	flushTimer   *time.Timer
	closed       bool
}

// NewClient builds a recorder client for a broker base URL and starts
// the background flush timer.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 5 * time.Second},
		log:           logging.Nop(),
		batchSize:     50,
		flushInterval: 5 * time.Second,
		seen:          make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.flushTimer = time.AfterFunc(c.flushInterval, c.backgroundFlush)
	return c
}

func (c *Client) backgroundFlush() {
	if err := c.Flush(); err != nil {
		c.log.Warn("recorder flush failed", "error", err)
	}

	c.mu.Lock()
	if !c.closed {
		c.flushTimer.Reset(c.flushInterval)
	}
	c.mu.Unlock()
}

// RecordInteraction queues one exchange for upload. Missing id, hash,
// and timestamp fields are filled in; exchanges whose canonical hash was
// already queued are dropped.
func (c *Client) RecordInteraction(in Interaction) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	if in.Hash == "" {
		hash, err := contract.InteractionHash(in.Service, in.Consumer, in.ConsumerVersion, in.Operation, in.Request, in.Response)
		if err != nil {
			c.log.Warn("interaction hash failed", "error", err)
			return
		}
		in.Hash = hash
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, dup := c.seen[in.Hash]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[in.Hash] = struct{}{}
	c.interactions = append(c.interactions, in)
	shouldFlush := len(c.interactions)+len(c.fixtures) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		go c.backgroundFlush()
	}
}

// ProposeFixture queues a captured exchange as a draft fixture proposal.
// Defaults: status draft, source consumer. Duplicate payloads (by
// canonical hash) are dropped.
func (c *Client) ProposeFixture(p FixtureProposal) {
	if p.Status == "" {
		p.Status = contract.FixtureDraft
	}
	if p.Source == "" {
		p.Source = contract.SourceConsumer
	}
	if p.Hash == "" {
		hash, err := contract.FixtureHash(p.Service, p.Operation, p.SpecType, p.Data)
		if err != nil {
			c.log.Warn("fixture hash failed", "error", err)
			return
		}
		p.Hash = hash
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, dup := c.seen[p.Hash]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[p.Hash] = struct{}{}
	c.fixtures = append(c.fixtures, p)
	shouldFlush := len(c.interactions)+len(c.fixtures) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		go c.backgroundFlush()
	}
}

// Flush uploads everything queued so far. Failed batches are requeued.
func (c *Client) Flush() error {
	c.mu.Lock()
	interactions := c.interactions
	fixtures := c.fixtures
	c.interactions = nil
	c.fixtures = nil
	c.mu.Unlock()

	var firstErr error
	if len(interactions) > 0 {
		if err := c.post("/api/interactions", map[string]any{"interactions": interactions}); err != nil {
			firstErr = err
			c.mu.Lock()
			c.interactions = append(interactions, c.interactions...)
			c.mu.Unlock()
		}
	}
	if len(fixtures) > 0 {
		if err := c.post("/api/fixtures", map[string]any{"fixtures": fixtures}); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.mu.Lock()
			c.fixtures = append(fixtures, c.fixtures...)
			c.mu.Unlock()
		}
	}
	return firstErr
}

func (c *Client) post(path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	resp, err := c.client.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// Close stops the flush timer and drains the queue.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.flushTimer.Stop()
	c.mu.Unlock()

	return c.Flush()
}

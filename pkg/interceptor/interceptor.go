package interceptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/logging"
	"github.com/cliftonc/entente/pkg/recorder"
	"github.com/cliftonc/entente/pkg/router"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Config holds interceptor settings.
type Config struct {
	// Upstream is the real service's base URL.
	Upstream string `json:"upstream" yaml:"upstream"`
	// Service is the upstream service's name, recorded with interactions.
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	// Consumer is the calling application, recorded with interactions.
	Consumer string `json:"consumer,omitempty" yaml:"consumer,omitempty"`
	// Version is the consumer version recorded with interactions.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// MaxBodyBytes caps captured body sizes. Larger bodies still flow
	// through the proxy; only the capture is truncated to nil.
	MaxBodyBytes int64 `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
	// ProposeFixtures submits matched exchanges as draft fixtures.
	ProposeFixtures bool `json:"proposeFixtures,omitempty" yaml:"proposeFixtures,omitempty"`
}

// FixtureProposer accepts draft fixture proposals. The recorder client
// implements it.
type FixtureProposer interface {
	ProposeFixture(p recorder.FixtureProposal)
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(i *Interceptor) {
		if log != nil {
			i.log = log
		}
	}
}

// WithRecorder sets the interaction sink. A sink that also implements
// FixtureProposer receives draft fixtures when ProposeFixtures is on.
func WithRecorder(sink recorder.Sink) Option {
	return func(i *Interceptor) {
		i.recorder = sink
	}
}

// Interceptor is a capture-only reverse proxy.
type Interceptor struct {
	cfg      Config
	router   *router.Router
	recorder recorder.Sink
	log      *slog.Logger
	proxy    *httputil.ReverseProxy
	upstream *url.URL
}

// New builds an interceptor forwarding to cfg.Upstream.
func New(cfg Config, rt *router.Router, opts ...Option) (*Interceptor, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream url %q has no scheme or host", cfg.Upstream)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	i := &Interceptor{
		cfg:      cfg,
		router:   rt,
		log:      logging.Nop(),
		upstream: upstream,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.Host = upstream.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			i.log.Warn("upstream unreachable", "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	return i, nil
}

// ServeHTTP forwards the request upstream and records the observed
// exchange. Capture failures never affect the forwarded traffic.
func (i *Interceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqBody := i.captureRequestBody(r)
	req := canonicalize(r, reqBody)
	out := i.router.Tag(req)

	capture := &responseCapture{ResponseWriter: w, limit: i.cfg.MaxBodyBytes}
	i.proxy.ServeHTTP(capture, r)

	i.record(req, out, capture.response())
}

// captureRequestBody reads the body for capture and restores it for the
// proxy. Oversized bodies pass through uncaptured.
func (i *Interceptor) captureRequestBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if int64(len(raw)) > i.cfg.MaxBodyBytes {
		return nil
	}
	return raw
}

func canonicalize(r *http.Request, body []byte) *contract.Request {
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	var query map[string]string
	if values := r.URL.Query(); len(values) > 0 {
		query = make(map[string]string, len(values))
		for k := range values {
			query[k] = values.Get(k)
		}
	}
	return contract.NewRequest(r.Method, r.URL.Path, headers, query, decodeBody(body))
}

func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if json.Unmarshal(raw, &decoded) == nil {
		return decoded
	}
	return string(raw)
}

func (i *Interceptor) record(req *contract.Request, out *router.MatchOutcome, resp *contract.Response) {
	if i.recorder == nil {
		return
	}
	i.recorder.RecordInteraction(recorder.Interaction{
		Service:         i.cfg.Service,
		Consumer:        i.cfg.Consumer,
		ConsumerVersion: i.cfg.Version,
		Operation:       out.OperationID,
		SpecType:        out.Format,
		Matched:         out.Matched,
		Request:         req,
		Response:        resp,
	})

	if !i.cfg.ProposeFixtures || !out.Matched || resp == nil {
		return
	}
	proposer, ok := i.recorder.(FixtureProposer)
	if !ok {
		return
	}
	proposer.ProposeFixture(recorder.FixtureProposal{
		Service:   i.cfg.Service,
		Operation: out.OperationID,
		SpecType:  out.Format,
		Data: contract.FixtureData{
			Request: map[string]any{
				"method": req.Method,
				"path":   req.Path,
				"body":   req.Body,
			},
			Response: map[string]any{
				"status": resp.Status,
				"body":   resp.Body,
			},
		},
	})
}

// responseCapture tees the upstream response for recording while it
// streams to the client.
type responseCapture struct {
	http.ResponseWriter
	status  int
	limit   int64
	body    bytes.Buffer
	dropped bool
}

func (c *responseCapture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	if !c.dropped {
		if int64(c.body.Len()+len(p)) > c.limit {
			c.dropped = true
			c.body.Reset()
		} else {
			c.body.Write(p)
		}
	}
	return c.ResponseWriter.Write(p)
}

func (c *responseCapture) response() *contract.Response {
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make(map[string]string, len(c.Header()))
	for k := range c.Header() {
		headers[strings.ToLower(k)] = c.Header().Get(k)
	}
	return &contract.Response{
		Status:  status,
		Headers: headers,
		Body:    decodeBody(c.body.Bytes()),
	}
}

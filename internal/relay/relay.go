// Package relay implements the webhook intermediary. It accepts webhooks
// on the URLs game servers were originally configured with, acknowledges
// them immediately and forwards each one from a bounded worker pool: once
// as JSON to the primary hookwatch service and once, verbatim, to every
// legacy target configured for its source.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/config"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/metrics"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

const maxBodyBytes = 1 << 20

// DefaultQueueSize is used when Options.QueueSize is not positive.
const DefaultQueueSize = 256

// ErrQueueFull is returned by Enqueue when the job queue has no room.
var ErrQueueFull = errors.New("relay queue full")

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("relay closed")

// Options configures a Relay.
type Options struct {
	PrimaryURL     string
	PrimaryTimeout time.Duration
	LegacyTimeout  time.Duration
	Workers        int
	QueueSize      int // default DefaultQueueSize
	Targets        config.Targets
	Metrics        *metrics.Metrics
	Client         *http.Client
}

// OptionsFromConfig maps relay configuration onto Options.
func OptionsFromConfig(c *config.RelayConfig, m *metrics.Metrics) Options {
	return Options{
		PrimaryURL:     c.PrimaryURL,
		PrimaryTimeout: c.PrimaryTimeout,
		LegacyTimeout:  c.LegacyTimeout,
		Workers:        c.Workers,
		QueueSize:      c.QueueSize,
		Targets:        c.Targets,
		Metrics:        m,
	}
}

// Job is one intercepted webhook awaiting forwarding.
type Job struct {
	ID          string
	Source      model.Source
	Path        string
	Payload     map[string]any // nil when the body could not be parsed
	Raw         []byte
	ContentType string
}

// Relay owns the job queue and its workers.
type Relay struct {
	opts   Options
	client *http.Client

	mu     sync.RWMutex
	closed bool
	queue  chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Relay and starts its workers.
func New(opts Options) *Relay {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.PrimaryTimeout <= 0 {
		opts.PrimaryTimeout = 5 * time.Second
	}
	if opts.LegacyTimeout <= 0 {
		opts.LegacyTimeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		opts:   opts,
		client: client,
		queue:  make(chan Job, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for range opts.Workers {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue hands j to the worker pool without blocking.
func (r *Relay) Enqueue(j Job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	select {
	case r.queue <- j:
		return nil
	default:
		r.opts.Metrics.RelayQueueDropped()
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for the queue to drain. If ctx
// expires first, in-flight forwards are cancelled and ctx.Err is returned.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Relay) worker() {
	defer r.wg.Done()
	for j := range r.queue {
		r.process(r.ctx, j)
	}
}

// process forwards one job. Each forward is a single attempt.
func (r *Relay) process(ctx context.Context, j Job) {
	log := logging.L().With("job_id", j.ID, "source", j.Source, "path", j.Path)
	r.opts.Metrics.RelayJob(primaryRoute(j.Source))

	if j.Payload != nil {
		if err := r.forwardPrimary(ctx, j); err != nil {
			r.opts.Metrics.RelayForwardFailed("primary")
			log.Warnw("primary forward failed", "error", err)
		} else {
			log.Debugw("forwarded to primary")
		}
	} else {
		log.Warnw("unparsable body not sent to primary", "content_type", j.ContentType)
	}

	for _, target := range r.targets(j.Source) {
		if err := r.forwardLegacy(ctx, j, target); err != nil {
			r.opts.Metrics.RelayForwardFailed("legacy")
			log.Warnw("legacy forward failed", "target", redact(target), "error", err)
			continue
		}
		log.Debugw("forwarded to legacy target", "target", redact(target))
	}
}

func (r *Relay) forwardPrimary(ctx context.Context, j Job) error {
	body, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	u := r.opts.PrimaryURL + "/webhook/" + primaryRoute(j.Source)
	return r.post(ctx, r.opts.PrimaryTimeout, u, "application/json", body)
}

func (r *Relay) forwardLegacy(ctx context.Context, j Job, target string) error {
	ct := j.ContentType
	if ct == "" {
		ct = "application/json"
	}
	return r.post(ctx, r.opts.LegacyTimeout, target, ct, j.Raw)
}

func (r *Relay) post(ctx context.Context, timeout time.Duration, u, contentType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (r *Relay) targets(source model.Source) []string {
	switch source {
	case model.SourceReport:
		return r.opts.Targets.Report
	case model.SourceAdmin:
		return r.opts.Targets.Admin
	default:
		return r.opts.Targets.General
	}
}

// primaryRoute maps a source to its receiver on the primary service.
func primaryRoute(source model.Source) string {
	switch source {
	case model.SourceReport:
		return "report-source"
	case model.SourceAdmin:
		return "admin-source"
	default:
		return "catch-all"
	}
}

// redact drops the path of a target URL; webhook tokens live there.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host
}

// parseBody decodes a JSON object, falling back to url-encoded form fields
// when the content type says so. Single-valued fields are flattened to
// strings. Returns nil when the body is neither.
func parseBody(contentType string, raw []byte) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return obj
	}

	mt, _, _ := mime.ParseMediaType(contentType)
	if mt != "application/x-www-form-urlencoded" {
		return nil
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

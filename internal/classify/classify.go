// Package classify derives report records, admin records and alerts from
// webhook payloads and applies them to the live state.
package classify

import (
	"context"
	"strings"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/broadcast"
	"github.com/alfredjeanlab/hookwatch/internal/events"
	"github.com/alfredjeanlab/hookwatch/internal/livestate"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// reportKeyword marks content as a player report.
const reportKeyword = "report"

// AlertKeywords are the substrings that make report content suspicious.
var AlertKeywords = []string{"hack", "cheat", "exploit", "sql"}

// Broadcaster pushes a named event to live viewers.
type Broadcaster interface {
	Publish(event string, payload any) error
}

// AlertCounter is notified whenever an alert is raised.
type AlertCounter interface {
	AlertRaised()
}

// Result describes what a single classification derived.
type Result struct {
	Report *model.ReportAction
	Admin  *model.AdminAction
	Alert  *model.Alert
}

// Classifier applies classification results to a livestate.State.
type Classifier struct {
	state     *livestate.State
	broadcast Broadcaster
	publisher events.Publisher
	counter   AlertCounter
	now       func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPublisher sets the event bus publisher for alerts.
func WithPublisher(p events.Publisher) Option {
	return func(c *Classifier) { c.publisher = p }
}

// WithAlertCounter sets the alert counter.
func WithAlertCounter(ac AlertCounter) Option {
	return func(c *Classifier) { c.counter = ac }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New returns a Classifier writing to state and pushing alerts through b.
func New(state *livestate.State, b Broadcaster, opts ...Option) *Classifier {
	c := &Classifier{
		state:     state,
		broadcast: b,
		publisher: &events.NoopPublisher{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Report classifies a report-source payload. A report record is appended
// when the content mentions "report"; independently, an alert is raised
// when it contains any of AlertKeywords. Both checks ignore case.
func (c *Classifier) Report(ctx context.Context, p model.Payload) Result {
	var res Result
	content := p.Content()
	lower := strings.ToLower(content)
	ts := c.now()

	if strings.Contains(lower, reportKeyword) {
		r := model.ReportAction{
			Type:      model.ReportTypePlayer,
			Timestamp: ts,
			Content:   content,
			Embeds:    p.Embeds(),
		}
		c.state.AddReport(r)
		res.Report = &r
	}

	if IsSuspicious(content) {
		a := model.Alert{
			Type:      model.AlertTypeSuspicious,
			Timestamp: ts,
			Content:   content,
			Severity:  model.SeverityHigh,
		}
		c.state.AddAlert(a)
		res.Alert = &a
		c.raise(ctx, a)
	}
	return res
}

// Admin classifies an admin-source payload. Every payload yields exactly
// one admin record.
func (c *Classifier) Admin(_ context.Context, p model.Payload) Result {
	a := model.AdminAction{
		Timestamp: c.now(),
		Action:    p.Content(),
		Embeds:    p.Embeds(),
	}
	c.state.AddAdminAction(a)
	return Result{Admin: &a}
}

func (c *Classifier) raise(ctx context.Context, a model.Alert) {
	log := logging.Get(ctx)
	log.Warnw("suspicious report", "content", a.Content)

	if c.counter != nil {
		c.counter.AlertRaised()
	}
	if c.broadcast != nil {
		if err := c.broadcast.Publish(broadcast.EventAlert, a); err != nil {
			log.Warnw("alert broadcast failed", "error", err)
		}
	}
	evt := events.AlertRaised{Alert: a, Source: model.SourceReport.String()}
	if err := c.publisher.Publish(ctx, events.TopicAlert, evt); err != nil {
		log.Warnw("alert publish failed", "error", err)
	}
}

// IsSuspicious reports whether content contains any alert keyword,
// ignoring case.
func IsSuspicious(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range AlertKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

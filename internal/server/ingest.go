package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alfredjeanlab/hookwatch/internal/broadcast"
	"github.com/alfredjeanlab/hookwatch/internal/events"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// inputError indicates an unusable webhook body.
// The HTTP layer maps this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// receiver describes one webhook endpoint.
type receiver struct {
	source model.Source
	kind   model.Kind
	event  string
}

var (
	reportReceiver  = receiver{model.SourceReport, model.KindReport, broadcast.EventNewLog}
	adminReceiver   = receiver{model.SourceAdmin, model.KindAdminAction, broadcast.EventNewAdminAction}
	generalReceiver = receiver{model.SourceUnknown, model.KindGeneral, broadcast.EventNewGeneralLog}
)

// receiverFor returns the receiver for source. Unknown sources fall back
// to the general receiver.
func receiverFor(source model.Source) receiver {
	switch source {
	case model.SourceReport:
		return reportReceiver
	case model.SourceAdmin:
		return adminReceiver
	default:
		return generalReceiver
	}
}

// Ingest persists body as one log entry from source, then broadcasts it,
// publishes it on the event bus and classifies it. The entry is durable
// when Ingest returns nil. Returns inputError when body is not a JSON
// object; nothing is persisted in that case.
func (s *Server) Ingest(ctx context.Context, source model.Source, body []byte) (*model.LogEntry, error) {
	rc := receiverFor(source)
	log := logging.Get(ctx)

	payload, err := model.ParsePayload(body)
	if err != nil {
		s.metrics.WebhookRejected(rc.source.String())
		return nil, inputError("invalid payload: " + err.Error())
	}

	entry := &model.LogEntry{
		Timestamp: s.now(),
		Source:    rc.source,
		Kind:      rc.kind,
		Content:   payload.Content(),
		Raw:       append([]byte(nil), body...),
	}
	if err := s.store.AppendEntry(ctx, entry); err != nil {
		s.metrics.StoreError()
		return nil, fmt.Errorf("append entry: %w", err)
	}

	if err := s.hub.Publish(rc.event, entry); err != nil {
		log.Warnw("broadcast failed", "event", rc.event, "entry_id", entry.ID, "error", err)
	}
	if err := s.publisher.Publish(ctx, events.TopicForKind(rc.kind), events.EntryAppended{Entry: entry}); err != nil {
		s.metrics.PublishError()
		log.Warnw("failed to publish entry", "kind", rc.kind, "entry_id", entry.ID, "error", err)
	}

	switch rc.source {
	case model.SourceReport:
		s.classifier.Report(ctx, payload)
	case model.SourceAdmin:
		s.classifier.Admin(ctx, payload)
	}

	s.activity.Record(rc.source, rc.kind)
	s.metrics.WebhookReceived(rc.source.String())

	log.Debugw("webhook ingested", "source", rc.source, "kind", rc.kind, "entry_id", entry.ID)
	return entry, nil
}

// handleWebhook returns the HTTP handler for one receiver.
func (s *Server) handleWebhook(source model.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.metrics.WebhookRejected(source.String())
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		if _, err := s.Ingest(r.Context(), source, body); err != nil {
			var ie inputError
			if errors.As(err, &ie) {
				writeError(w, http.StatusBadRequest, ie.Error())
				return
			}
			logging.Get(r.Context()).Errorw("webhook ingest failed", "source", source, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store entry")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}

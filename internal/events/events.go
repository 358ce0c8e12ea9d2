package events

import (
	"context"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// Event topic constants
const (
	TopicLogReport      = "hookwatch.log.report"
	TopicLogAdminAction = "hookwatch.log.admin_action"
	TopicLogGeneral     = "hookwatch.log.general"

	TopicAlert = "hookwatch.alert"

	// TopicAll matches every hookwatch subject.
	TopicAll = "hookwatch.>"
)

// TopicForKind returns the log subject for an entry kind.
func TopicForKind(k model.Kind) string {
	switch k {
	case model.KindReport:
		return TopicLogReport
	case model.KindAdminAction:
		return TopicLogAdminAction
	default:
		return TopicLogGeneral
	}
}

// Event types

type EntryAppended struct {
	Entry *model.LogEntry `json:"entry"`
}

type AlertRaised struct {
	Alert  model.Alert `json:"alert"`
	Source string      `json:"source"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

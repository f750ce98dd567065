// Package queue defines the deferred execution contract between the event
// bridge (producer side) and the dispatch worker (consumer side).
package queue

import "context"

const (
	// SubjectEvents carries dispatch jobs, one per event occurrence.
	SubjectEvents = "hooks.events"
	// SubjectAudit carries delivery audit events for live watchers.
	SubjectAudit = "hooks.audit"
	// SubjectDLQ receives envelopes whose dispatch job exhausted
	// systemic redelivery.
	SubjectDLQ = "hooks.dlq"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

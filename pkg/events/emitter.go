// Package events handles event emission for schedule entry lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventTypeEntryCreated = "entry.created"
	EventTypeEntryUpdated = "entry.updated"
	EventTypeRunCompleted = "run.completed"
)

// Emitter publishes reconciliation outcomes to the event stream. A nil
// producer turns every emit into a no-op, which is how dry runs and
// broker-less deployments behave.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitChanges emits one event per applied change, batched.
func (e *Emitter) EmitChanges(ctx context.Context, changes []models.PlannedChange) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitChanges")
	defer span.End()

	if e.producer == nil || len(changes) == 0 {
		return nil
	}

	events := make([]*kafka.EntryEvent, 0, len(changes))
	for _, change := range changes {
		eventType := EventTypeEntryUpdated
		if change.Action == models.SyncActionInsert {
			eventType = EventTypeEntryCreated
		}

		data, err := json.Marshal(change.Entry)
		if err != nil {
			return err
		}

		events = append(events, &kafka.EntryEvent{
			EventType:      eventType,
			EntryID:        change.Entry.ID,
			CounterpartyID: change.Entry.CounterpartyID,
			InvoiceRef:     change.Entry.InvoiceRef,
			Status:         string(change.Entry.Status),
			Data:           data,
		})
	}

	if err := e.producer.PublishEntryEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entry events")
		return err
	}

	return nil
}

// EmitRunCompleted emits the run summary event.
func (e *Emitter) EmitRunCompleted(ctx context.Context, runID string, report *models.Report) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	event := &kafka.RunEvent{
		EventType: EventTypeRunCompleted,
		RunID:     runID,
		DryRun:    report.DryRun,
		Report:    data,
	}

	if err := e.producer.PublishRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run completed event")
		return err
	}

	return nil
}

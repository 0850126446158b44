package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doiregistrar/internal/events/bus"
	"doiregistrar/internal/events/models"
	"doiregistrar/internal/platform/kafka/consumer"
	dErrors "doiregistrar/pkg/domain-errors"
)

// Publisher emits events after a change was applied.
type Publisher interface {
	Publish(ctx context.Context, entries []models.BatchEntry)
}

// DeadLetterSink parks change records that failed for a retryable reason.
type DeadLetterSink interface {
	Send(ctx context.Context, entry models.BatchEntry, reason string) error
}

const deadLetterTimeout = 10 * time.Second

// MintIndeterminate is published when a create may or may not have minted.
type MintIndeterminate struct {
	Record ChangeRecord `json:"record"`
	Error  string       `json:"error"`
	At     time.Time    `json:"at"`
}

// Dispatcher feeds consumed change records through the Handler.
//
// Rejected records are logged and committed. Retryable failures are sent to
// the dead-letter sink; if that also fails the error is returned so the
// message is not committed. Creates that may have minted are reported and
// committed, never retried.
type Dispatcher struct {
	handler    *Handler
	notify     Publisher
	deadLetter DeadLetterSink
	logger     *slog.Logger
}

func NewDispatcher(h *Handler, notify Publisher, deadLetter DeadLetterSink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handler: h, notify: notify, deadLetter: deadLetter, logger: logger}
}

func (d *Dispatcher) Handle(ctx context.Context, msg *consumer.Message) error {
	rec, err := Decode(msg.Value)
	if err != nil {
		d.logger.WarnContext(ctx, "dropping undecodable change record",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	entry, err := d.handler.Handle(ctx, rec)
	if err == nil {
		d.notify.Publish(ctx, []models.BatchEntry{*entry})
		return nil
	}

	var incomplete *IncompleteError
	if errors.As(err, &incomplete) {
		d.finishLater(ctx, msg, rec, incomplete)
		return nil
	}

	switch Classify(err) {
	case OutcomeIndeterminate:
		d.reportIndeterminate(ctx, rec, err)
		return nil
	case OutcomeRejected:
		d.logger.WarnContext(ctx, "change record rejected",
			"op", rec.Operation,
			"tenant", rec.Tenant,
			"doi", rec.Doi,
			"kind", dErrors.KindOf(err),
			"error", err,
		)
		return nil
	}
	if ctx.Err() != nil {
		// shutting down; leave the offset uncommitted
		return ctx.Err()
	}

	reason := fmt.Sprintf("%s: %v", dErrors.KindOf(err), err)
	if dlErr := d.deadLetter.Send(ctx, entryFromMessage(msg), reason); dlErr != nil {
		return fmt.Errorf("dead-letter change record: %w", dlErr)
	}
	d.logger.WarnContext(ctx, "change record dead-lettered",
		"op", rec.Operation,
		"tenant", rec.Tenant,
		"doi", rec.Doi,
		"error", err,
	)
	return nil
}

// finishLater announces a DOI minted by a create that then failed, and parks
// the remaining findable step. The message is always committed: redelivering
// the create would mint a second DOI.
func (d *Dispatcher) finishLater(ctx context.Context, msg *consumer.Message, rec ChangeRecord, inc *IncompleteError) {
	d.notify.Publish(ctx, []models.BatchEntry{*inc.Created})

	if Classify(inc.Err) == OutcomeRejected {
		d.logger.WarnContext(ctx, "minted doi left without landing page",
			"tenant", rec.Tenant,
			"resource", rec.Resource,
			"doi", inc.Doi.String(),
			"kind", dErrors.KindOf(inc.Err),
			"error", inc.Err,
		)
		return
	}

	entry, err := remainingEntry(msg, inc)
	if err == nil {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterTimeout)
		defer cancel()
		reason := fmt.Sprintf("%s: %v", dErrors.KindOf(inc.Err), inc.Err)
		err = d.deadLetter.Send(sendCtx, entry, reason)
	}
	if err != nil {
		d.logger.ErrorContext(ctx, "could not park landing page step for minted doi",
			"tenant", rec.Tenant,
			"resource", rec.Resource,
			"doi", inc.Doi.String(),
			"landing_page", inc.Remaining.LandingPage,
			"error", err,
		)
		return
	}
	d.logger.WarnContext(ctx, "landing page step dead-lettered",
		"tenant", rec.Tenant,
		"doi", inc.Doi.String(),
		"error", inc.Err,
	)
}

// reportIndeterminate publishes a create whose registry outcome is unknown.
// Retrying it could mint a duplicate, so it goes to operators instead.
func (d *Dispatcher) reportIndeterminate(ctx context.Context, rec ChangeRecord, err error) {
	d.logger.ErrorContext(ctx, "create outcome unknown; needs reconciliation",
		"op", rec.Operation,
		"tenant", rec.Tenant,
		"resource", rec.Resource,
		"kind", dErrors.KindOf(err),
		"error", err,
	)
	payload, mErr := json.Marshal(MintIndeterminate{
		Record: rec,
		Error:  err.Error(),
		At:     d.handler.now().UTC(),
	})
	if mErr != nil {
		return
	}
	d.notify.Publish(ctx, []models.BatchEntry{
		models.NewBatchEntry(payload, Source, rec.Resource, models.DetailTypeMintIndeterminate),
	})
}

// remainingEntry builds the change record that finishes an incomplete create.
// Its id derives from the original entry so repeated parking is idempotent.
func remainingEntry(msg *consumer.Message, inc *IncompleteError) (models.BatchEntry, error) {
	payload, err := json.Marshal(inc.Remaining)
	if err != nil {
		return models.BatchEntry{}, err
	}
	orig := entryFromMessage(msg)
	return models.BatchEntry{
		ID:         uuid.NewSHA1(orig.ID, []byte(string(OpFindable)+":"+inc.Doi.String())),
		Payload:    payload,
		Source:     orig.Source,
		Resource:   orig.Resource,
		DetailType: models.DetailTypeChangeRecord,
	}, nil
}

// entryFromMessage rebuilds the fanned-out entry so a redrive republishes
// the record unchanged.
func entryFromMessage(msg *consumer.Message) models.BatchEntry {
	entry := models.BatchEntry{
		ID:         uuid.New(),
		Payload:    msg.Value,
		Source:     msg.Headers[bus.HeaderSource],
		Resource:   string(msg.Key),
		DetailType: msg.Headers[bus.HeaderDetailType],
	}
	if id, err := uuid.Parse(msg.Headers[bus.HeaderEntryID]); err == nil {
		entry.ID = id
	}
	if entry.DetailType == "" {
		entry.DetailType = models.DetailTypeChangeRecord
	}
	return entry
}

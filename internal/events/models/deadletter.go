package models

import (
	"time"

	"github.com/google/uuid"
)

// DeadLetter is a persisted entry that exhausted its publish attempts.
type DeadLetter struct {
	EntryID    uuid.UUID
	Source     string
	Resource   string
	DetailType string
	Payload    []byte
	Attempts   int
	Reason     string
	CreatedAt  time.Time
}

// NewDeadLetter captures entry and the last failure reason.
func NewDeadLetter(entry BatchEntry, reason string, at time.Time) DeadLetter {
	return DeadLetter{
		EntryID:    entry.ID,
		Source:     entry.Source,
		Resource:   entry.Resource,
		DetailType: entry.DetailType,
		Payload:    entry.Payload,
		Attempts:   entry.Attempts,
		Reason:     reason,
		CreatedAt:  at,
	}
}

// Entry rebuilds the batch entry with a reset attempt count, keeping its id
// so consumers can deduplicate a redriven event.
func (d DeadLetter) Entry() BatchEntry {
	return BatchEntry{
		ID:         d.EntryID,
		Payload:    d.Payload,
		Source:     d.Source,
		Resource:   d.Resource,
		DetailType: d.DetailType,
	}
}

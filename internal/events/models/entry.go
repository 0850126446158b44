package models

import (
	"github.com/google/uuid"
)

const (
	// DetailTypeChangeRecord tags fanned-out change-data-capture records.
	DetailTypeChangeRecord = "ChangeRecord"
	// DetailTypeDoiUpdated tags events emitted after a DOI mutation.
	DetailTypeDoiUpdated = "DoiUpdated"
	// DetailTypeMintIndeterminate tags create requests whose outcome at the
	// registry is unknown. They need reconciliation, never a blind retry.
	DetailTypeMintIndeterminate = "DoiMintIndeterminate"
)

// BatchEntry is one outbound event. Attempts counts submissions within a
// single publish call and is never persisted.
type BatchEntry struct {
	ID         uuid.UUID
	Payload    []byte
	Source     string
	Resource   string
	DetailType string
	Attempts   int
}

// NewBatchEntry builds an entry with a fresh id.
func NewBatchEntry(payload []byte, source, resource, detailType string) BatchEntry {
	return BatchEntry{
		ID:         uuid.New(),
		Payload:    payload,
		Source:     source,
		Resource:   resource,
		DetailType: detailType,
	}
}

// PutResult is the bus outcome for one entry. An empty ErrorCode means delivered.
type PutResult struct {
	ErrorCode    string
	ErrorMessage string
}

// Failed reports whether the entry was rejected.
func (r PutResult) Failed() bool {
	return r.ErrorCode != ""
}

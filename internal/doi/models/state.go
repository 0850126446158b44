package models

import (
	"fmt"
	"strings"

	dErrors "doiregistrar/pkg/domain-errors"
)

// DoiState is the registry-side lifecycle state of a DOI. It is never stored
// locally; every decision reads it fresh from the registry.
type DoiState string

const (
	StateDraft      DoiState = "draft"
	StateRegistered DoiState = "registered"
	StateFindable   DoiState = "findable"

	// StateDeleted is the terminal pseudo-state after a draft is hard-deleted.
	// The registry never reports it.
	StateDeleted DoiState = "deleted"
)

// Transition names the operation that moves a DOI between states.
type Transition string

const (
	TransitionSetLandingPage Transition = "set_landing_page"
	TransitionDeleteMetadata Transition = "delete_metadata"
	TransitionUpdateMetadata Transition = "update_metadata"
	TransitionDeleteDraft    Transition = "delete_draft"
)

// transitions enumerates every legal move. Anything absent is illegal.
var transitions = map[DoiState]map[Transition]DoiState{
	StateDraft: {
		TransitionSetLandingPage: StateFindable,
		TransitionDeleteDraft:    StateDeleted,
	},
	StateFindable: {
		TransitionDeleteMetadata: StateRegistered,
	},
	StateRegistered: {
		TransitionUpdateMetadata: StateFindable,
	},
}

// ParseDoiState reads a state as reported by the registry.
func ParseDoiState(raw string) (DoiState, error) {
	s := DoiState(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.KindInvalidInput, fmt.Sprintf("unknown doi state %q", raw))
	}
	return s, nil
}

// IsValid reports whether s is one of the three registry states.
func (s DoiState) IsValid() bool {
	switch s {
	case StateDraft, StateRegistered, StateFindable:
		return true
	}
	return false
}

func (s DoiState) String() string { return string(s) }

// Apply returns the state reached by t, or false when t is illegal from s.
func (s DoiState) Apply(t Transition) (DoiState, bool) {
	next, ok := transitions[s][t]
	return next, ok
}

// CanTransitionTo reports whether some legal transition moves s to target.
func (s DoiState) CanTransitionTo(target DoiState) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsDeletable is true only for drafts. Findable and registered DOIs are permanent.
func (s DoiState) IsDeletable() bool {
	return s == StateDraft
}

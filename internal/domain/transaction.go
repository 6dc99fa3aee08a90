package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is one stage of the transaction pipeline.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusOfferSubmitted     Status = "offer_submitted"
	StatusUnderContract      Status = "under_contract"
	StatusInspection         Status = "inspection"
	StatusAppraisal          Status = "appraisal"
	StatusMortgageCommitment Status = "mortgage_commitment"
	StatusAttorneyReview     Status = "attorney_review"
	StatusClosingScheduled   Status = "closing_scheduled"
	StatusClosed             Status = "closed"
	StatusCancelled          Status = "cancelled"
)

// pipelineOrder is the forward progression of an active transaction.
// Cancelled is reachable from any non-terminal stage and never appears
// in the forward path.
var pipelineOrder = []Status{
	StatusDraft,
	StatusOfferSubmitted,
	StatusUnderContract,
	StatusInspection,
	StatusAppraisal,
	StatusMortgageCommitment,
	StatusAttorneyReview,
	StatusClosingScheduled,
	StatusClosed,
}

// PipelineOrder returns the forward stage progression, earliest first.
// Dependent computations (deadlines, compliance) rely on this ordering.
func PipelineOrder() []Status {
	out := make([]Status, len(pipelineOrder))
	copy(out, pipelineOrder)
	return out
}

// TerminalStatuses returns the statuses no transition may leave.
func TerminalStatuses() []Status {
	return []Status{StatusClosed, StatusCancelled}
}

// ParseStatus validates a raw status string against the closed enum.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	if candidate == StatusCancelled {
		return StatusCancelled, nil
	}
	for _, s := range pipelineOrder {
		if candidate == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// IsOpen reports whether the transaction is still in flight.
func (s Status) IsOpen() bool {
	return !s.Terminal()
}

// orderIndex returns the position of s in the forward pipeline, or -1
// for cancelled.
func (s Status) orderIndex() int {
	for i, stage := range pipelineOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// CanTransitionTo reports whether the pipeline permits moving from s to
// next. Moves are forward-only; cancellation is allowed from any
// non-terminal status; nothing leaves a terminal status.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, to := s.orderIndex(), next.orderIndex()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// Transaction is one real-estate deal. AgentID is the owning agent,
// fixed at creation.
type Transaction struct {
	TransactionID  uuid.UUID
	AgentID        uuid.UUID
	Address        string
	Status         Status
	SalePriceCents *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Participants   []Participant
}

// Participant attaches a user to a transaction in a given capacity.
// (TransactionID, UserID) is unique; re-attachment is a no-op.
type Participant struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Capacity      Role
	CreatedAt     time.Time
}

// HasParticipant reports whether userID is attached to the transaction.
func (t Transaction) HasParticipant(userID uuid.UUID) bool {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

package model

import "time"

// ActivityKind identifies the operation an activity record describes.
type ActivityKind string

const (
	ActivityFetch ActivityKind = "fetch"
	ActivityDraft ActivityKind = "draft"
	ActivityReply ActivityKind = "reply"
	ActivityPoll  ActivityKind = "poll"
)

// Activity outcome values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Activity is an audit entry for something the assistant did.
type Activity struct {
	// ID is the unique identifier for this record.
	ID string `json:"id" db:"id"`

	Kind ActivityKind `json:"kind" db:"kind"`

	// EmailID is the directory id the action targeted, if any.
	EmailID string `json:"emailId,omitempty" db:"email_id"`

	// Recipient is the address a reply was sent to.
	Recipient string `json:"recipient,omitempty" db:"recipient"`

	Subject string `json:"subject,omitempty" db:"subject"`

	// Outcome is OutcomeOK or OutcomeFailed.
	Outcome string `json:"outcome" db:"outcome"`

	// Detail holds an error message or a short summary.
	Detail string `json:"detail,omitempty" db:"detail"`

	// Generation is the directory generation the action ran against.
	Generation uint64 `json:"generation" db:"generation"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

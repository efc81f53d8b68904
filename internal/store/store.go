package store

import (
	"context"

	"github.com/nhle/mail-assistant/internal/model"
)

// DefaultLimit is the number of records Recent returns when no limit is
// given.
const DefaultLimit = 50

// MaxLimit caps the number of records a single query returns.
const MaxLimit = 500

// ActivityFilter controls filtering and pagination for activity queries.
type ActivityFilter struct {
	Kind    *model.ActivityKind
	EmailID *string
	Limit   int
	Offset  int
}

// Store defines the persistence interface for the activity log.
type Store interface {
	Record(ctx context.Context, a model.Activity) error
	Recent(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)
	Close() error
}

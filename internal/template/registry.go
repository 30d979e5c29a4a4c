// Package template supplies template records to the conversation engine,
// either from a local library or from a remote registry service.
package template

import (
	"context"
	"errors"

	"github.com/guided-ai/interview-platform/internal/model"
)

// ErrNotFound is returned when no template matches the requested id.
var ErrNotFound = errors.New("template not found")

// Query filters a template listing.
type Query struct {
	// Search fuzzy-matches template names and descriptions.
	Search string
	// Category limits results to one category.
	Category string
}

// Registry supplies template records by id or list query.
type Registry interface {
	List(ctx context.Context, q Query) ([]model.Template, error)
	Get(ctx context.Context, id string) (*model.Template, error)
}

// UsageRecorder is implemented by registries that track how often each
// template is used.
type UsageRecorder interface {
	RecordUse(id string)
}

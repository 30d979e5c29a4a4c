package template

import (
	"context"
	"errors"

	"github.com/guided-ai/interview-platform/internal/model"
)

// Chain consults registries in order. Get returns the first hit; List merges
// results, with earlier registries winning on duplicate ids.
type Chain []Registry

// NewChain builds a chained registry, skipping nil entries.
func NewChain(registries ...Registry) Chain {
	var c Chain
	for _, r := range registries {
		if r != nil {
			c = append(c, r)
		}
	}
	return c
}

// List merges listings from every registry in the chain. A registry failure
// does not fail the listing as long as at least one registry responds.
func (c Chain) List(ctx context.Context, q Query) ([]model.Template, error) {
	seen := make(map[string]bool)
	var out []model.Template
	var lastErr error

	for _, r := range c {
		templates, err := r.List(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		for _, t := range templates {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}

	if out == nil && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// RecordUse forwards to every chained registry that tracks usage.
func (c Chain) RecordUse(id string) {
	for _, r := range c {
		if rec, ok := r.(UsageRecorder); ok {
			rec.RecordUse(id)
		}
	}
}

// Get returns the template from the first registry that has it.
func (c Chain) Get(ctx context.Context, id string) (*model.Template, error) {
	for _, r := range c {
		t, err := r.Get(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

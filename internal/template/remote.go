package template

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guided-ai/interview-platform/internal/model"
)

// RemoteRegistry consumes an external template registry over HTTP:
// GET /templates for the list, GET /templates/{id} for a single record.
// Records failing validation are dropped rather than handed to callers.
type RemoteRegistry struct {
	baseURL string
	http    *http.Client
}

// NewRemoteRegistry creates a client for an external template registry.
func NewRemoteRegistry(baseURL string) *RemoteRegistry {
	return &RemoteRegistry{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// List fetches all templates and applies the query locally.
func (r *RemoteRegistry) List(ctx context.Context, q Query) ([]model.Template, error) {
	var fetched []model.Template
	if err := r.get(ctx, "/templates", &fetched); err != nil {
		return nil, err
	}

	out := fetched[:0]
	for _, t := range fetched {
		if t.Validate() != nil {
			continue
		}
		if q.Category != "" && t.Category != q.Category {
			continue
		}
		if q.Search != "" && !matchesSearch(&t, q.Search) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Get fetches one template by id.
func (r *RemoteRegistry) Get(ctx context.Context, id string) (*model.Template, error) {
	var t model.Template
	if err := r.get(ctx, "/templates/"+id, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RemoteRegistry) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("template registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("template registry returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding registry response: %w", err)
	}
	return nil
}

func matchesSearch(t *model.Template, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(t.Name), term) ||
		strings.Contains(strings.ToLower(t.Description), term)
}

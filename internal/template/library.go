package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/pkg/logger"
)

// Library is an in-memory template registry, optionally seeded from a
// directory of YAML template files. Templates failing validation are rejected
// at load time.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*model.Template
	logger    *logger.Logger
}

// NewLibrary creates an empty library.
func NewLibrary(log *logger.Logger) *Library {
	return &Library{
		templates: make(map[string]*model.Template),
		logger:    log,
	}
}

// LoadDir loads every *.yaml / *.yml file under dir as one template each.
// Invalid templates are skipped with a logged warning; the rest load fine.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading template dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading template file %s: %w", path, err)
		}

		var t model.Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			l.logger.Warn("skipping unparsable template file",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if err := l.Add(&t); err != nil {
			l.logger.Warn("skipping invalid template",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		loaded++
	}

	l.logger.Info("template library loaded", zap.Int("count", loaded))
	return nil
}

// Add validates and registers a template, assigning an id when absent.
func (l *Library) Add(t *model.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	l.mu.Lock()
	l.templates[t.ID] = t
	l.mu.Unlock()
	return nil
}

// Create registers a template from an API request.
func (l *Library) Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error) {
	t := &model.Template{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		SystemPrompt:  req.SystemPrompt,
		Variables:     req.Variables,
		ExampleInput:  req.ExampleInput,
		ExampleOutput: req.ExampleOutput,
	}
	if err := l.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns templates matching the query, most recently updated first.
// A search term ranks by fuzzy match on name and description instead.
func (l *Library) List(ctx context.Context, q Query) ([]model.Template, error) {
	l.mu.RLock()
	all := make([]model.Template, 0, len(l.templates))
	for _, t := range l.templates {
		if q.Category != "" && t.Category != q.Category {
			continue
		}
		all = append(all, *t)
	}
	l.mu.RUnlock()

	if q.Search == "" {
		sort.Slice(all, func(i, j int) bool {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		})
		return all, nil
	}

	haystack := make([]string, len(all))
	for i, t := range all {
		haystack[i] = t.Name + " " + t.Description
	}
	matches := fuzzy.Find(q.Search, haystack)

	ranked := make([]model.Template, len(matches))
	for i, m := range matches {
		ranked[i] = all[m.Index]
	}
	return ranked, nil
}

// Get returns the template with the given id.
func (l *Library) Get(ctx context.Context, id string) (*model.Template, error) {
	l.mu.RLock()
	t, ok := l.templates[id]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

// RecordUse increments a template's usage counter.
func (l *Library) RecordUse(id string) {
	l.mu.Lock()
	if t, ok := l.templates[id]; ok {
		t.UsageCount++
	}
	l.mu.Unlock()
}

// Len returns the number of registered templates.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.templates)
}

// Package templates holds built-in product schema templates and a registry
// that user templates can be added to at runtime.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/competitiveedge/engine/internal/domain"
	"github.com/competitiveedge/engine/internal/usecase"
)

//go:embed data/*.yaml
var builtin embed.FS

// systemNamespace derives stable ids for built-in templates
var systemNamespace = uuid.MustParse("5f0c2a1e-8d4b-4f7a-9e3c-6b1d2a7e9c40")

// Template is a named, reusable product schema
type Template struct {
	ID          string               `json:"id" yaml:"id"`
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      domain.ProductSchema `json:"schema" yaml:"schema"`
	IsSystem    bool                 `json:"is_system" yaml:"-"`
	CreatedAt   time.Time            `json:"created_at" yaml:"-"`
}

// Registry is a thread-safe template store seeded with the built-in templates
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	logger    *slog.Logger
}

// NewRegistry loads and validates the built-in templates
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		templates: make(map[string]*Template),
		logger:    logger,
	}

	files, err := fs.Glob(builtin, "data/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		data, err := builtin.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", file, err)
		}
		t, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", path.Base(file), err)
		}
		t.ID = uuid.NewSHA1(systemNamespace, []byte(t.Name)).String()
		t.IsSystem = true
		r.templates[t.ID] = t
		logger.Debug("templates: loaded system template", "name", t.Name, "id", t.ID)
	}

	return r, nil
}

// Parse decodes a YAML template and validates its schema
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("%w: template name is required", domain.ErrInvalidSchema)
	}
	if ok, errs := usecase.ValidateSchema(&t.Schema); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSchema, strings.Join(errs, "; "))
	}
	return &t, nil
}

// List returns system templates first, then user templates, each by name
func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Template) int {
		if a.IsSystem != b.IsSystem {
			if a.IsSystem {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Get finds a template by id, or by case-insensitive name
func (r *Registry) Get(idOrName string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.templates[idOrName]; ok {
		return *t, nil
	}
	for _, t := range r.templates {
		if strings.EqualFold(t.Name, idOrName) {
			return *t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, idOrName)
}

// Add validates schema and stores it as a user template
func (r *Registry) Add(name, description string, schema domain.ProductSchema) (Template, error) {
	if strings.TrimSpace(name) == "" {
		return Template{}, fmt.Errorf("%w: template name is required", domain.ErrInvalidRequest)
	}
	if ok, errs := usecase.ValidateSchema(&schema); !ok {
		return Template{}, fmt.Errorf("%w: %s", domain.ErrInvalidSchema, strings.Join(errs, "; "))
	}

	t := &Template{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Schema:      schema,
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	r.templates[t.ID] = t
	r.mu.Unlock()

	r.logger.Info("templates: added user template", "name", name, "id", t.ID)
	return *t, nil
}

// Remove deletes a user template. System templates cannot be removed.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.templates[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	if t.IsSystem {
		return fmt.Errorf("%w: %s", domain.ErrSystemTemplate, t.Name)
	}
	delete(r.templates, id)
	return nil
}

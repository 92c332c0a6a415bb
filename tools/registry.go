package tools

import (
	"github.com/cockroachdb/errors"
)

// Registry maps tool names to tools.
// It is built once and is read-only afterwards,
// so it is safe to share between concurrent turns.
type Registry struct {
	byName map[string]ITool
	list   []ITool
}

// NewRegistry returns a registry of the provided tools.
// Names must be unique and not empty.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ITool, len(list)),
		list:   make([]ITool, 0, len(list)),
	}
	for _, t := range list {
		if t == nil {
			return nil, errors.New("nil tool")
		}
		name := t.Name()
		if name == "" {
			return nil, errors.New("tool name is empty")
		}
		if _, ok := r.byName[name]; ok {
			return nil, errors.Newf("duplicate tool: %s", name)
		}
		r.byName[name] = t
		r.list = append(r.list, t)
	}
	return r, nil
}

// Lookup returns the tool by exact name
func (r *Registry) Lookup(name string) (ITool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the tools in registration order
func (r *Registry) Tools() []ITool {
	return append([]ITool(nil), r.list...)
}

// Names returns the tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.list))
	for i, t := range r.list {
		names[i] = t.Name()
	}
	return names
}

// Len returns the number of tools
func (r *Registry) Len() int {
	return len(r.list)
}

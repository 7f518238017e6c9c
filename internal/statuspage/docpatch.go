package statuspage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bissquit/status24/internal/domain"
)

// Document is the generic form of an organization document used by
// adapters that store it as a JSON-like tree.
type Document map[string]interface{}

// EnsureContainer initializes container as an empty mapping unless it already is one.
// It reports whether the document changed.
func (d Document) EnsureContainer(container domain.Container) bool {
	if _, ok := d[string(container)].(map[string]interface{}); ok {
		return false
	}
	d[string(container)] = map[string]interface{}{}
	return true
}

// Apply applies p to the document, stamping timestamp paths with now.
// Non-mapping values found on the way to a leaf are replaced by mappings.
func (d Document) Apply(p Patch, now time.Time) {
	for path, value := range p.Set {
		d.set(SplitPath(path), cloneValue(value))
	}
	for _, path := range p.Timestamps {
		d.set(SplitPath(path), now)
	}
	for _, path := range p.Delete {
		d.delete(SplitPath(path))
	}
}

func (d Document) set(segments []string, value interface{}) {
	node := map[string]interface{}(d)
	for _, s := range segments[:len(segments)-1] {
		next, ok := node[s].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			node[s] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
}

func (d Document) delete(segments []string) {
	node := map[string]interface{}(d)
	for _, s := range segments[:len(segments)-1] {
		next, ok := node[s].(map[string]interface{})
		if !ok {
			return
		}
		node = next
	}
	delete(node, segments[len(segments)-1])
}

// Decode converts the document into an Organization.
func (d Document) Decode(orgID string) (*domain.Organization, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	var org domain.Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	org.ID = orgID
	return &org, nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return cloneMap(d)
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case Document:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	}
	return v
}

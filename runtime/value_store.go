package runtime

import "strings"

// MapStore keeps execution values as nested maps so that both Risor
// attribute access (steps.charge.id) and expr member access resolve them
// without key rewriting.
type MapStore struct {
	root map[string]any
}

var _ ValueStore = (*MapStore)(nil)

func NewValueStore() *MapStore {
	return &MapStore{root: make(map[string]any)}
}

// Set stores value at a dot-separated path. Missing or non-map
// intermediates are replaced with maps.
func (s *MapStore) Set(key string, value any) {
	parent, leaf := s.parent(key, true)
	parent[leaf] = value
}

func (s *MapStore) Get(key string) (any, bool) {
	parent, leaf := s.parent(key, false)
	if parent == nil {
		return nil, false
	}
	v, ok := parent[leaf]
	return v, ok
}

// SetNested stores value at prefix. Maps are copied level by level so later
// writes below prefix never mutate the caller's map; slices are kept whole.
func (s *MapStore) SetNested(prefix string, value any) {
	s.Set(prefix, cloneMaps(value))
}

// All returns the root map handed to interpreters as globals.
func (s *MapStore) All() map[string]any {
	return s.root
}

// Reset drops every stored value.
func (s *MapStore) Reset() {
	s.root = make(map[string]any)
}

func (s *MapStore) parent(key string, create bool) (map[string]any, string) {
	parts := strings.Split(key, ".")
	current := s.root
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			if !create {
				return nil, ""
			}
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	return current, parts[len(parts)-1]
}

func cloneMaps(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneMaps(v)
	}
	return out
}

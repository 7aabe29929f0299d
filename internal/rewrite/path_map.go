package rewrite

import "strings"

// PathMap records old base directory -> new base directory pairs. Lookups walk the keys
// in insertion order so the first registered base wins when several match.
type PathMap struct {
	keys   []string
	values map[string]string
}

func NewPathMap() *PathMap {
	return &PathMap{values: make(map[string]string)}
}

// Set registers a mapping. Re-registering a key keeps its original position and
// replaces its value.
func (m *PathMap) Set(oldBase, newBase string) {
	if _, exists := m.values[oldBase]; !exists {
		m.keys = append(m.keys, oldBase)
	}
	m.values[oldBase] = newBase
}

// Get returns the new base registered for an exact old base.
func (m *PathMap) Get(oldBase string) (string, bool) {
	v, ok := m.values[oldBase]
	return v, ok
}

// Match returns the first registered pair whose old base occurs inside path.
func (m *PathMap) Match(path string) (oldBase, newBase string, ok bool) {
	if m == nil {
		return "", "", false
	}
	for _, k := range m.keys {
		if strings.Contains(path, k) {
			return k, m.values[k], true
		}
	}
	return "", "", false
}

func (m *PathMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

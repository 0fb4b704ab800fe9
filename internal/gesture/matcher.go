package gesture

import (
	"math"
	"sort"
	"sync"
)

// DefaultMinExtent is the smallest bounding box side, in pixels, an input
// path needs before it is matched at all. Normalization would otherwise
// blow sensor jitter up to a full-size gesture.
const DefaultMinExtent = 15.0

// Matcher matches head paths against registered templates using DTW.
// It is safe for concurrent use.
type Matcher struct {
	mu        sync.RWMutex
	templates []*Template

	// MinExtent overrides DefaultMinExtent when positive.
	MinExtent float64
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Add registers a template, replacing any template with the same ID.
func (m *Matcher) Add(t *Template) {
	if t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, old := range m.templates {
		if old.ID == t.ID {
			m.templates[i] = t
			return
		}
	}
	m.templates = append(m.templates, t)
}

// Remove drops the template with the given ID.
func (m *Matcher) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Replace swaps the whole template set.
func (m *Matcher) Replace(templates []*Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append([]*Template(nil), templates...)
}

// Len returns the number of registered templates.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

func (m *Matcher) minExtent() float64 {
	if m.MinExtent > 0 {
		return m.MinExtent
	}
	return DefaultMinExtent
}

// Match returns the templates within tolerance of path, best first.
func (m *Matcher) Match(path []PathPoint) []Match {
	if len(path) < 2 {
		return nil
	}
	if w, h := Extent(path); max(w, h) < m.minExtent() {
		return nil
	}
	input := normalizePath(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		if len(t.Path) == 0 {
			continue
		}
		d := DTWDistance(input, normalizePath(t.Path))
		if math.IsInf(d, 1) || d > t.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: t,
			Score:    1.0 / (1.0 + d),
			Distance: d,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Best returns the best match for path, if any.
func (m *Matcher) Best(path []PathPoint) (Match, bool) {
	matches := m.Match(path)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

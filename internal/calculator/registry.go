package calculator

import (
	"fmt"
	"sort"
	"sync"
)

// Summary is the listing entry for one registered calculator.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Registry holds the calculators a host can mount, keyed by id.
type Registry struct {
	mu    sync.RWMutex
	calcs map[string]*Calculator
}

func NewRegistry() *Registry {
	return &Registry{calcs: map[string]*Calculator{}}
}

// Register adds a calculator. Ids are unique across the registry.
func (r *Registry) Register(c *Calculator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.calcs[c.ID()]; exists {
		return fmt.Errorf("calculator %s is already registered", c.ID())
	}
	r.calcs[c.ID()] = c
	return nil
}

// Get returns a registered calculator by id.
func (r *Registry) Get(id string) (*Calculator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calcs[id]
	return c, ok
}

// List returns summaries of every registered calculator, sorted by id.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.calcs))
	for _, c := range r.calcs {
		out = append(out, Summary{ID: c.ID(), Title: c.Title(), Description: c.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports how many calculators are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calcs)
}

// Package catalog provides the immutable lookup of known qualifier tags.
//
// The catalog is loaded once at process start, either from the embedded
// built-in definitions or from explicit entries, and is read-only afterwards.
package catalog

import (
	"fmt"
	"strings"
)

// Modifier describes one qualifier tag a participant can attach to a claim.
type Modifier struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	MaxLevel    int    `yaml:"max_level"`
	Description string `yaml:"description"`
}

// Catalog is an immutable, ordered collection of modifiers.
type Catalog struct {
	order []string
	byID  map[string]Modifier
}

// New builds a catalog from the provided modifiers, preserving their order.
func New(modifiers []Modifier) (*Catalog, error) {
	cat := &Catalog{byID: make(map[string]Modifier, len(modifiers))}
	for _, modifier := range modifiers {
		id := strings.TrimSpace(modifier.ID)
		if id == "" {
			return nil, fmt.Errorf("modifier id is required")
		}
		if _, dup := cat.byID[id]; dup {
			return nil, fmt.Errorf("duplicate modifier id %q", id)
		}
		if strings.TrimSpace(modifier.Name) == "" {
			return nil, fmt.Errorf("modifier %q name is required", id)
		}
		if modifier.MaxLevel < 1 {
			return nil, fmt.Errorf("modifier %q max level must be at least 1", id)
		}
		modifier.ID = id
		cat.order = append(cat.order, id)
		cat.byID[id] = modifier
	}
	return cat, nil
}

// Get returns the modifier for an id.
func (c *Catalog) Get(id string) (Modifier, bool) {
	if c == nil {
		return Modifier{}, false
	}
	modifier, ok := c.byID[id]
	return modifier, ok
}

// All returns the modifiers in catalog order.
func (c *Catalog) All() []Modifier {
	if c == nil {
		return nil
	}
	modifiers := make([]Modifier, 0, len(c.order))
	for _, id := range c.order {
		modifiers = append(modifiers, c.byID[id])
	}
	return modifiers
}

// Len returns the number of modifiers in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Corpus management for the Akaylee Move fuzzer. An append-only, insertion-ordered
set of inputs deduplicated by value, used for both the working corpus and the solutions.
Implements thread-safe operations so reporters can read while the loop appends.
*/

package core

import (
	"sync"

	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// Corpus manages a collection of inputs
// Two inputs with the same value key are stored once
type Corpus struct {
	entries []*interfaces.Input
	index   map[string]int
	mu      sync.RWMutex
}

// NewCorpus creates a new corpus instance
func NewCorpus() *Corpus {
	return &Corpus{
		index: make(map[string]int),
	}
}

// Add appends an input unless an equal one is already present.
// Returns the position of the stored input and whether it was newly added.
func (c *Corpus) Add(input *interfaces.Input) (int, bool) {
	key := input.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, exists := c.index[key]; exists {
		return idx, false
	}
	c.entries = append(c.entries, input)
	c.index[key] = len(c.entries) - 1
	return len(c.entries) - 1, true
}

// Get retrieves an input by position
// Returns nil if the position is out of range
func (c *Corpus) Get(idx int) *interfaces.Input {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if idx < 0 || idx >= len(c.entries) {
		return nil
	}
	return c.entries[idx]
}

// Contains reports whether an equal input is stored
func (c *Corpus) Contains(input *interfaces.Input) bool {
	key := input.Key()
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[key]
	return ok
}

// Size returns the current number of inputs
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetAll returns all inputs in insertion order
func (c *Corpus) GetAll() []*interfaces.Input {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*interfaces.Input, len(c.entries))
	copy(out, c.entries)
	return out
}

// Drain removes and returns every input. Used to re-evaluate seeds through the executor.
func (c *Corpus) Drain() []*interfaces.Input {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.entries
	c.entries = nil
	c.index = make(map[string]int)
	return out
}

// GetStats returns corpus statistics
func (c *Corpus) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	generations := make(map[int]int)
	scripts := 0
	for _, in := range c.entries {
		generations[in.Generation]++
		if in.Sequence != nil {
			scripts++
		}
	}
	return map[string]interface{}{
		"size":                    len(c.entries),
		"generation_distribution": generations,
		"scripts":                 scripts,
	}
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: world.go
Description: World state visible to the VM, plus an in-memory implementation that keeps
published module bytes for the lifetime of a fuzzing session.
*/

package vm

import (
	"fmt"
	"sort"
	"sync"
)

// DeployedModule is a published module and its bytecode
type DeployedModule struct {
	ID   ModuleID
	Code []byte
}

// WorldState is the storage the VM executes against
type WorldState interface {
	DeployModule(id ModuleID, code []byte) error
	Modules() []DeployedModule
}

// MemoryWorld is an in-memory WorldState
type MemoryWorld struct {
	modules map[ModuleID][]byte
	mu      sync.RWMutex
}

// NewMemoryWorld creates an empty world
func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{modules: make(map[ModuleID][]byte)}
}

// DeployModule publishes or replaces module bytes
func (w *MemoryWorld) DeployModule(id ModuleID, code []byte) error {
	if id.Name == "" {
		return fmt.Errorf("cannot deploy module with empty name at %s", id.Address)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.modules[id] = append([]byte(nil), code...)
	return nil
}

// Module returns the bytes of one module
func (w *MemoryWorld) Module(id ModuleID) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	code, ok := w.modules[id]
	return code, ok
}

// Modules lists every deployed module ordered by id
func (w *MemoryWorld) Modules() []DeployedModule {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]DeployedModule, 0, len(w.modules))
	for id, code := range w.modules {
		out = append(out, DeployedModule{ID: id, Code: code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

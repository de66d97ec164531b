/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: backend.go
Description: Registry of VM backends. A backend bundles a VM, a module decoder and a sequence
compiler; binaries register one in an init function and the CLI selects it by name.
*/

package vm

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownBackend is returned when no backend is registered under a name
var ErrUnknownBackend = errors.New("unknown vm backend")

// Backend groups the external collaborators of a fuzzing session
type Backend struct {
	Name     string
	NewVM    func() (VM, error)
	NewWorld func() WorldState
	Decoder  Decoder
	Compiler SequenceCompiler
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// Register makes a backend available by name. Registering a name twice panics.
func Register(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if b.Name == "" || b.NewVM == nil || b.Decoder == nil {
		panic("vm: Register requires a name, a VM constructor and a decoder")
	}
	if _, dup := backends[b.Name]; dup {
		panic("vm: Register called twice for backend " + b.Name)
	}
	backends[b.Name] = b
}

// Lookup returns the named backend
func Lookup(name string) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("%w %q (registered: %v)", ErrUnknownBackend, name, backendNamesLocked())
	}
	return b, nil
}

// Backends lists registered backend names
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	return backendNamesLocked()
}

func backendNamesLocked() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// World returns a fresh world state for the backend, defaulting to MemoryWorld
func (b Backend) World() WorldState {
	if b.NewWorld != nil {
		return b.NewWorld()
	}
	return NewMemoryWorld()
}

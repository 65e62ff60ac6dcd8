package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a new Client from the given configuration.
type Factory func(cfg Config) (Client, error)

// Backend describes an installable engine: how to build a client for it and
// how a user gets the CLI it drives.
type Backend struct {
	// ID is the registry key and the engine name on events ("droid").
	ID string

	// CLICommand is the binary the engine launches by default.
	CLICommand string

	// InstallCommand is a shell one-liner that installs CLICommand.
	InstallCommand string

	// Build creates a client.
	Build Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Backend)
)

// Register adds a backend to the registry.
// Engines call this from init(). Panics on a duplicate or empty ID, or a nil
// Build function.
//
// Example:
//
//	func init() {
//	    provider.Register(provider.Backend{
//	        ID:         "droid",
//	        CLICommand: "droid",
//	        Build:      newFromProviderConfig,
//	    })
//	}
func Register(b Backend) {
	if b.ID == "" {
		panic("provider: backend registered without an ID")
	}
	if b.Build == nil {
		panic(fmt.Sprintf("provider %q registered without a Build function", b.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[b.ID]; exists {
		panic(fmt.Sprintf("provider %q already registered", b.ID))
	}
	registry[b.ID] = b
}

// Lookup returns the registered backend with the given ID.
func Lookup(name string) (Backend, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	b, ok := registry[name]
	return b, ok
}

// New creates a new Client using the named backend.
// Returns ErrUnknownProvider if the backend is not registered.
func New(name string, cfg Config) (Client, error) {
	b, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if cfg.Provider == "" {
		cfg.Provider = name
	}
	return b.Build(cfg)
}

// MustNew creates a new Client, panicking on error.
// Use only when backend availability is guaranteed (e.g., in tests).
func MustNew(name string, cfg Config) Client {
	client, err := New(name, cfg)
	if err != nil {
		panic(fmt.Sprintf("provider.MustNew(%q): %v", name, err))
	}
	return client
}

// Available returns the IDs of all registered backends, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend is registered.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Unregister removes a backend from the registry.
// This is primarily useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(registry, name)
}

// ClearRegistry removes all registered backends.
// This is primarily useful for testing.
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry = make(map[string]Backend)
}

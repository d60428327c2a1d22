// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web runs every
// component's migrations, calls Init(deps) once, and mounts Routes() at
// Prefix() on the root router.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Migrations() may return nil if the component has no schema changes.
// Routes() should mount BOTH page and form endpoints relative to Prefix(),
// e.g. for Prefix() == "/accounts":
//
//	r := chi.NewRouter()
//	r.Get("/login", c.loginGET)
//	return r
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
	Migrations() []string
	Init(*Deps) error
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so migrations and
// mounting happen in a stable order.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount calls Init on each component and attaches its router.
func Mount(r chi.Router, deps *Deps, comps ...Component) error {
	for _, c := range comps {
		if err := c.Init(deps); err != nil {
			return err
		}
		r.Mount(c.Prefix(), c.Routes())
	}
	return nil
}

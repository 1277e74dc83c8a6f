// Package registry dispatches named operations to versioned modules that can
// be added, replaced or removed at runtime.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"PoolKeeper/internal/model"
)

// Request carries the caller and string arguments of an operation.
type Request struct {
	Caller string
	Args   map[string]string
}

// Arg returns the named argument or "".
func (r Request) Arg(name string) string {
	if r.Args == nil {
		return ""
	}
	return r.Args[name]
}

// Handler executes one operation.
type Handler func(ctx context.Context, req Request) (any, error)

// Module is a named, versioned set of operations.
type Module struct {
	Name    string
	Version string
	Ops     map[string]Handler
}

// Action is the kind of change a Cut applies.
type Action int

const (
	Add Action = iota
	Replace
	Remove
)

func (a Action) String() string {
	switch a {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Cut changes the operations routed to one module.
type Cut struct {
	Action Action
	Module Module
	// Ops limits a Remove to these operations; empty removes the whole module.
	Ops []string
}

// ModuleInfo describes an installed module.
type ModuleInfo struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Ops     []string `json:"ops"`
}

type route struct {
	module  string
	handler Handler
}

// Registry routes operation names to module handlers.
type Registry struct {
	mu      sync.RWMutex
	owner   string
	routes  map[string]route
	modules map[string]string
}

// New creates an empty registry administered by owner.
func New(owner string) *Registry {
	return &Registry{
		owner:   owner,
		routes:  make(map[string]route),
		modules: make(map[string]string),
	}
}

// Apply installs cuts atomically. Only the owner may call it.
func (r *Registry) Apply(caller string, cuts ...Cut) error {
	if caller != r.owner {
		return model.NewError(model.KindAuthorization, model.CodeOnlyOwner, "%s is not the registry owner", caller)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := make(map[string]route, len(r.routes))
	for k, v := range r.routes {
		routes[k] = v
	}
	modules := make(map[string]string, len(r.modules))
	for k, v := range r.modules {
		modules[k] = v
	}

	for _, c := range cuts {
		if err := applyCut(routes, modules, c); err != nil {
			return err
		}
	}
	r.routes = routes
	r.modules = modules
	return nil
}

func applyCut(routes map[string]route, modules map[string]string, c Cut) error {
	name := c.Module.Name
	if name == "" {
		return model.NewError(model.KindValidation, model.CodeInvalidParameter, "module name required")
	}
	switch c.Action {
	case Add:
		for op, h := range c.Module.Ops {
			if existing, ok := routes[op]; ok {
				return model.NewError(model.KindValidation, model.CodeInvalidParameter, "operation %q already provided by %s", op, existing.module)
			}
			routes[op] = route{module: name, handler: h}
		}
		modules[name] = c.Module.Version
	case Replace:
		for op, h := range c.Module.Ops {
			if _, ok := routes[op]; !ok {
				return model.NewError(model.KindValidation, model.CodeFunctionNotFound, "cannot replace missing operation %q", op)
			}
			routes[op] = route{module: name, handler: h}
		}
		modules[name] = c.Module.Version
	case Remove:
		ops := c.Ops
		if len(ops) == 0 {
			for op, rt := range routes {
				if rt.module == name {
					ops = append(ops, op)
				}
			}
		}
		for _, op := range ops {
			if _, ok := routes[op]; !ok {
				return model.NewError(model.KindValidation, model.CodeFunctionNotFound, "cannot remove missing operation %q", op)
			}
			delete(routes, op)
		}
	default:
		return model.NewError(model.KindValidation, model.CodeInvalidParameter, "unknown cut action %d", c.Action)
	}

	used := make(map[string]bool)
	for _, rt := range routes {
		used[rt.module] = true
	}
	for m := range modules {
		if !used[m] {
			delete(modules, m)
		}
	}
	return nil
}

// Call dispatches op. Unknown operations fail with FN.
func (r *Registry) Call(ctx context.Context, op string, req Request) (any, error) {
	r.mu.RLock()
	rt, ok := r.routes[op]
	r.mu.RUnlock()
	if !ok {
		return nil, model.NewError(model.KindValidation, model.CodeFunctionNotFound, "function %q does not exist", op)
	}
	out, err := rt.handler(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", rt.module, op, err)
	}
	return out, nil
}

// Modules lists installed modules and their operations, sorted by name.
func (r *Registry) Modules() []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byModule := make(map[string][]string)
	for op, rt := range r.routes {
		byModule[rt.module] = append(byModule[rt.module], op)
	}
	out := make([]ModuleInfo, 0, len(r.modules))
	for name, version := range r.modules {
		ops := byModule[name]
		sort.Strings(ops)
		out = append(out, ModuleInfo{Name: name, Version: version, Ops: ops})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModuleOf returns the module providing op.
func (r *Registry) ModuleOf(op string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[op]
	return rt.module, ok
}

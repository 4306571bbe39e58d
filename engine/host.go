package engine

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gl/errors"
)

// Host is implemented by struct-based host modules. Every exported method
// except Namespace and Names becomes an import of the namespace, named by
// converting the method name to kebab-case (CompileShader -> compile-shader).
//
// Method signatures must be accepted by wazero's HostFunctionBuilder.WithFunc:
// an optional context.Context and api.Module followed by numeric
// parameters and results.
type Host interface {
	Namespace() string
}

// NamedHost lets a host override derived import names. Names maps method
// names to import names.
type NamedHost interface {
	Host
	Names() map[string]string
}

// HostRegistry collects host functions by namespace.
type HostRegistry struct {
	funcs map[string]map[string]*HostFunc
	mu    sync.RWMutex
}

// HostFunc is one registered host function.
type HostFunc struct {
	Handler any
	Method  string
}

// NewHostRegistry creates an empty registry.
func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		funcs: make(map[string]map[string]*HostFunc),
	}
}

// RegisterHost registers every exported method of h.
func (r *HostRegistry) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	var names map[string]string
	if nh, ok := h.(NamedHost); ok {
		names = nh.Names()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[ns] == nil {
		r.funcs[ns] = make(map[string]*HostFunc)
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)

		if !method.IsExported() || method.Name == "Namespace" || method.Name == "Names" {
			continue
		}

		name := toKebabCase(method.Name)
		if n, ok := names[method.Name]; ok {
			name = n
		}

		r.funcs[ns][name] = &HostFunc{
			Handler: rv.Method(i).Interface(),
			Method:  method.Name,
		}
	}

	return nil
}

// RegisterFunc registers a single function.
func (r *HostRegistry) RegisterFunc(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Value(reflect.TypeOf(fn)).
			Detail("handler must be a function").
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]*HostFunc)
	}

	r.funcs[namespace][name] = &HostFunc{Handler: fn}
	return nil
}

// Lookup returns a registered function.
func (r *HostRegistry) Lookup(namespace, name string) (*HostFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hf, ok := r.funcs[namespace][name]
	return hf, ok
}

// Names returns the sorted import names registered under namespace.
func (r *HostRegistry) Names(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs[namespace]))
	for name := range r.funcs[namespace] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind instantiates one wazero host module per namespace.
func (r *HostRegistry) Bind(ctx context.Context, rt wazero.Runtime) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	namespaces := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		funcs := r.funcs[ns]
		builder := rt.NewHostModuleBuilder(ns)
		names := make([]string, 0, len(funcs))
		for name := range funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			builder.NewFunctionBuilder().
				WithFunc(funcs[name].Handler).
				WithName(name).
				Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Registration(errors.PhaseHost, ns, "*", err)
		}
		Logger().Debug("host module bound", zap.String("namespace", ns), zap.Int("functions", len(names)))
	}
	return nil
}

// Package registry resolves operation names (e.g. "arc.ungz", "md5") to
// the core.PipelineTemplate that builds their filter chain. It is the Go
// realization of the teacher's module table: a static, in-process
// equivalent of the original's dlopen-based module loader — Go has no
// portable dlopen-ABI story, so modules here are Go packages registered
// at init time rather than shared objects probed for an ABI version.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gofcom/fcom/core"
)

// ModuleFactory lazily constructs a Module the first time one of its
// operations is requested. Construction is expected to be cheap; any
// genuinely expensive setup belongs in the operation's own PipelineTemplate.
type ModuleFactory func() (*Module, error)

// Module groups a set of related operation templates under one name
// (e.g. "arc" for archive operations), mirroring the teacher's per-module
// provide_op table.
type Module struct {
	Name string
	Ops  map[string]*core.PipelineTemplate
}

// NewModule creates an empty Module.
func NewModule(name string) *Module {
	return &Module{Name: name, Ops: make(map[string]*core.PipelineTemplate)}
}

// Add registers a template under op (the unqualified operation name within
// this module, e.g. "ungz" inside module "arc").
func (m *Module) Add(op string, t *core.PipelineTemplate) *Module {
	m.Ops[op] = t
	return m
}

// Registry resolves dotted operation names to templates, loading modules
// on first use and caching them for the process lifetime.
type Registry struct {
	mu       sync.Mutex
	factory  map[string]ModuleFactory
	loaded   map[string]*Module
	aliases  map[string]string // full dotted alias -> full dotted canonical name
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		factory: make(map[string]ModuleFactory),
		loaded:  make(map[string]*Module),
		aliases: make(map[string]string),
	}
}

// RegisterModule associates a module name with the factory that builds it.
// The module is not constructed until an operation inside it is requested.
func (r *Registry) RegisterModule(name string, f ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory[name] = f
}

// Alias maps a bare operation name directly to a dotted "module.op" name,
// e.g. "ungz" -> "arc.ungz". Aliases resolve in a single hop: an alias
// target must name a real module.op pair, not another alias.
func (r *Registry) Alias(alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = target
}

// Resolve loads (if necessary) the module owning name and returns its
// template. name may be a bare alias ("ungz"), a dotted "module.op" name
// ("arc.ungz"), or a bare op understood by the default module (e.g. "md5"
// registered directly as an alias to "crypto.md5").
func (r *Registry) Resolve(name string) (*core.PipelineTemplate, error) {
	r.mu.Lock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	r.mu.Unlock()

	modName, op, err := split(name)
	if err != nil {
		return nil, err
	}

	mod, err := r.module(modName)
	if err != nil {
		return nil, err
	}

	tmpl, ok := mod.Ops[op]
	if !ok {
		return nil, fmt.Errorf("registry: module %q has no operation %q", modName, op)
	}
	return tmpl, nil
}

func (r *Registry) module(name string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.loaded[name]; ok {
		return m, nil
	}
	f, ok := r.factory[name]
	if !ok {
		return nil, fmt.Errorf("registry: no module %q", name)
	}
	m, err := f()
	if err != nil {
		return nil, fmt.Errorf("registry: load module %q: %w", name, err)
	}
	r.loaded[name] = m
	return m, nil
}

// Names lists every resolvable operation name across loaded and
// not-yet-loaded modules requires probing each factory, which defeats
// lazy loading; Names instead reports aliases plus any modules already
// loaded. Used by help text, which is allowed to be incomplete until a
// module has been touched once.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for alias := range r.aliases {
		if !seen[alias] {
			seen[alias] = true
			out = append(out, alias)
		}
	}
	for modName, m := range r.loaded {
		for op := range m.Ops {
			full := modName + "." + op
			if !seen[full] {
				seen[full] = true
				out = append(out, full)
			}
		}
	}
	sort.Strings(out)
	return out
}

func split(name string) (mod, op string, err error) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("registry: %q is not a module-qualified operation name", name)
}

// Package registry holds the declared resources the engine works
// from: connectors that produce graphs, functions that derive edges,
// and problems that say what to optimize. Connector listings follow a
// read-once protocol so each polling loop learns about changes to its
// kind exactly once.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2"

	"github.com/SmartX-Team/OpenARK-sub002/internal/function"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/pipeline"
)

// ConnectorSpec declares one data source. Options carries the
// kind-specific configuration body for the connector module to
// decode.
type ConnectorSpec struct {
	Scope    graph.Scope
	Kind     string
	Interval time.Duration // 0 means the pool default
	Options  hcl.Body
}

// FunctionSpec declares one stage. Stage is the compiled template;
// nil for annotations.
type FunctionSpec struct {
	Scope    graph.Scope
	Kind     function.Kind
	Requires []pipeline.Key
	Provides []pipeline.Key
	Template function.Template
	Stage    *function.Stage
}

// ProblemSpec declares one optimization. Metadata maps roles to
// column names; Src and Sink, when set, claim a capability pipeline
// over the declared functions.
type ProblemSpec struct {
	Scope    graph.Scope
	Metadata graph.Raw
	Src      []pipeline.Key
	Sink     []pipeline.Key
	Verbose  bool
}

// Registry is the mutable resource store. All methods are safe for
// concurrent use; critical sections only copy pointers.
type Registry struct {
	mu         sync.Mutex
	connectors map[graph.Scope]*ConnectorSpec
	functions  map[graph.Scope]*FunctionSpec
	funcOrder  []graph.Scope
	problems   map[graph.Scope]*ProblemSpec

	// dirty tracks, per connector kind, whether the set changed since
	// the kind was last listed. A kind enters the map on its first
	// listing; changes to untracked kinds are deliberately not
	// recorded, the first listing returns everything anyway.
	dirty map[string]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		connectors: make(map[graph.Scope]*ConnectorSpec),
		functions:  make(map[graph.Scope]*FunctionSpec),
		problems:   make(map[graph.Scope]*ProblemSpec),
		dirty:      make(map[string]bool),
	}
}

func (r *Registry) touchKind(kind string) {
	if _, tracked := r.dirty[kind]; tracked {
		r.dirty[kind] = true
	}
}

// InsertConnector adds or replaces a connector declaration.
func (r *Registry) InsertConnector(spec *ConnectorSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.connectors[spec.Scope]; ok && prev.Kind != spec.Kind {
		r.touchKind(prev.Kind)
	}
	r.connectors[spec.Scope] = spec
	r.touchKind(spec.Kind)
}

// DeleteConnector removes a connector declaration if present.
func (r *Registry) DeleteConnector(scope graph.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.connectors[scope]; ok {
		delete(r.connectors, scope)
		r.touchKind(prev.Kind)
	}
}

// ListConnectors returns the declarations of one kind, but only when
// the kind's set changed since the previous call; otherwise ok is
// false and the caller keeps whatever it fetched last time. The first
// call for a kind always returns the current set.
func (r *Registry) ListConnectors(kind string) ([]*ConnectorSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated, tracked := r.dirty[kind]
	if !tracked {
		updated = true
	}
	r.dirty[kind] = false
	if !updated {
		return nil, false
	}
	specs := make([]*ConnectorSpec, 0)
	for _, spec := range r.connectors {
		if spec.Kind == kind {
			specs = append(specs, spec)
		}
	}
	sortByScope(specs, func(s *ConnectorSpec) graph.Scope { return s.Scope })
	return specs, true
}

// InsertFunction adds or replaces a function declaration. First
// insertion order is preserved for listings, which is what ties
// pipeline indices to registration order.
func (r *Registry) InsertFunction(spec *FunctionSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.functions[spec.Scope]; !ok {
		r.funcOrder = append(r.funcOrder, spec.Scope)
	}
	r.functions[spec.Scope] = spec
}

// DeleteFunction removes a function declaration if present.
func (r *Registry) DeleteFunction(scope graph.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.functions[scope]; !ok {
		return
	}
	delete(r.functions, scope)
	for i, s := range r.funcOrder {
		if s == scope {
			r.funcOrder = append(r.funcOrder[:i], r.funcOrder[i+1:]...)
			break
		}
	}
}

// ListFunctions returns all function declarations in registration
// order.
func (r *Registry) ListFunctions() []*FunctionSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	specs := make([]*FunctionSpec, 0, len(r.funcOrder))
	for _, scope := range r.funcOrder {
		specs = append(specs, r.functions[scope])
	}
	return specs
}

// GetFunction looks a function up by scope.
func (r *Registry) GetFunction(scope graph.Scope) (*FunctionSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.functions[scope]
	return spec, ok
}

// InsertProblem adds or replaces a problem declaration.
func (r *Registry) InsertProblem(spec *ProblemSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems[spec.Scope] = spec
}

// DeleteProblem removes a problem declaration if present.
func (r *Registry) DeleteProblem(scope graph.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.problems, scope)
}

// ListProblems returns all problem declarations, ordered by scope.
func (r *Registry) ListProblems() []*ProblemSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	specs := make([]*ProblemSpec, 0, len(r.problems))
	for _, spec := range r.problems {
		specs = append(specs, spec)
	}
	sortByScope(specs, func(s *ProblemSpec) graph.Scope { return s.Scope })
	return specs
}

func sortByScope[T any](specs []T, scope func(T) graph.Scope) {
	sort.Slice(specs, func(i, j int) bool {
		a, b := scope(specs[i]), scope(specs[j])
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
}

// Package graph defines the scoped graph payloads the engine moves
// around: namespaced scopes, metadata dialects mapping logical roles
// to column names, and the node/edge frame pair itself.
package graph

// NamespaceDefault is used when a resource does not name a namespace.
const NamespaceDefault = "default"

// NameGlobal is the reserved scope name the merged, solved graph of a
// namespace is stored under.
const NameGlobal = "__global__"

// Scope identifies one graph within the store.
type Scope struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// GlobalScope returns the namespace's merge scope.
func GlobalScope(namespace string) Scope {
	return Scope{Namespace: namespace, Name: NameGlobal}
}

func (s Scope) String() string {
	return s.Namespace + "/" + s.Name
}

// IsGlobal reports whether the scope is a namespace's merge scope.
func (s Scope) IsGlobal() bool { return s.Name == NameGlobal }

// Filter selects scopes. Nil fields match anything.
type Filter struct {
	Namespace *string
	Name      *string
}

// Contains reports whether the scope passes the filter.
func (f Filter) Contains(s Scope) bool {
	if f.Namespace != nil && *f.Namespace != s.Namespace {
		return false
	}
	if f.Name != nil && *f.Name != s.Name {
		return false
	}
	return true
}

// All matches every scope.
func All() Filter { return Filter{} }

// InNamespace matches every scope of one namespace.
func InNamespace(namespace string) Filter {
	return Filter{Namespace: &namespace}
}

package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
	"github.com/SmartX-Team/OpenARK-sub002/internal/function"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/pipeline"
)

// Resource files declare connectors, functions and problems:
//
//	connector "default" "warehouse" {
//	  kind     = "fake"
//	  interval = "5s"
//	  ...              # kind-specific options
//	}
//
//	function "default" "move" {
//	  provides = ["flow"]
//	  filter   = "src != sink"
//	  script   = "capacity = 50; unit_cost = 1"
//	}
//
//	problem "default" "main" {
//	  metadata = { capacity = "capacity" }
//	}

type resourcesFile struct {
	Connectors []*connectorBlock `hcl:"connector,block"`
	Functions  []*functionBlock  `hcl:"function,block"`
	Problems   []*problemBlock   `hcl:"problem,block"`
}

type connectorBlock struct {
	Namespace string   `hcl:"namespace,label"`
	Name      string   `hcl:"name,label"`
	Kind      string   `hcl:"kind"`
	Interval  string   `hcl:"interval,optional"`
	Options   hcl.Body `hcl:",remain"`
}

type functionBlock struct {
	Namespace string   `hcl:"namespace,label"`
	Name      string   `hcl:"name,label"`
	Kind      string   `hcl:"kind,optional"`
	Requires  []string `hcl:"requires,optional"`
	Provides  []string `hcl:"provides,optional"`
	Filter    string   `hcl:"filter,optional"`
	Script    string   `hcl:"script,optional"`
}

type problemBlock struct {
	Namespace string            `hcl:"namespace,label"`
	Name      string            `hcl:"name,label"`
	Metadata  map[string]string `hcl:"metadata,optional"`
	Src       []string          `hcl:"src,optional"`
	Sink      []string          `hcl:"sink,optional"`
	Verbose   bool              `hcl:"verbose,optional"`
}

// ResourceSet is the parsed content of one or more resource files.
type ResourceSet struct {
	Connectors []*ConnectorSpec
	Functions  []*FunctionSpec
	Problems   []*ProblemSpec
}

// ParseDir parses every .hcl file under dir, in path order so that
// redeclarations resolve deterministically.
func ParseDir(dir string) (*ResourceSet, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".hcl") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("registry: walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	set := &ResourceSet{}
	parser := hclparse.NewParser()
	for _, path := range paths {
		if err := parseInto(parser, path, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// ParseFile parses a single resource file.
func ParseFile(path string) (*ResourceSet, error) {
	set := &ResourceSet{}
	if err := parseInto(hclparse.NewParser(), path, set); err != nil {
		return nil, err
	}
	return set, nil
}

func parseInto(parser *hclparse.Parser, path string, set *ResourceSet) error {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("registry: parse %s: %w", path, diags)
	}
	var parsed resourcesFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("registry: decode %s: %w", path, diags)
	}

	for _, block := range parsed.Connectors {
		spec := &ConnectorSpec{
			Scope:   scopeOf(block.Namespace, block.Name),
			Kind:    block.Kind,
			Options: block.Options,
		}
		if block.Interval != "" {
			interval, err := time.ParseDuration(block.Interval)
			if err != nil {
				return fmt.Errorf("registry: connector %s: %w", spec.Scope, err)
			}
			spec.Interval = interval
		}
		set.Connectors = append(set.Connectors, spec)
	}
	for _, block := range parsed.Functions {
		kind, err := function.ParseKind(block.Kind)
		if err != nil {
			return fmt.Errorf("registry: function %s/%s: %w", block.Namespace, block.Name, err)
		}
		spec := &FunctionSpec{
			Scope:    scopeOf(block.Namespace, block.Name),
			Kind:     kind,
			Requires: toKeys(block.Requires),
			Provides: toKeys(block.Provides),
			Template: function.Template{Filter: block.Filter, Script: block.Script},
		}
		if kind == function.KindScript {
			stage, err := function.Compile(spec.Template)
			if err != nil {
				return fmt.Errorf("registry: function %s: %w", spec.Scope, err)
			}
			spec.Stage = stage
		}
		set.Functions = append(set.Functions, spec)
	}
	for _, block := range parsed.Problems {
		set.Problems = append(set.Problems, &ProblemSpec{
			Scope:    scopeOf(block.Namespace, block.Name),
			Metadata: graph.Raw(block.Metadata),
			Src:      toKeys(block.Src),
			Sink:     toKeys(block.Sink),
			Verbose:  block.Verbose,
		})
	}
	return nil
}

func scopeOf(namespace, name string) graph.Scope {
	if namespace == "" {
		namespace = graph.NamespaceDefault
	}
	return graph.Scope{Namespace: namespace, Name: name}
}

func toKeys(names []string) []pipeline.Key {
	keys := make([]pipeline.Key, len(names))
	for i, name := range names {
		keys[i] = pipeline.Key(name)
	}
	return keys
}

// Apply replaces the registry's resources with the set, deleting what
// the set no longer declares. Connector changes flow through the
// dirty-kind protocol so polling loops pick them up.
func (r *Registry) Apply(set *ResourceSet) {
	keepConnectors := make(map[graph.Scope]bool, len(set.Connectors))
	for _, spec := range set.Connectors {
		keepConnectors[spec.Scope] = true
		r.InsertConnector(spec)
	}
	for _, scope := range r.connectorScopes() {
		if !keepConnectors[scope] {
			r.DeleteConnector(scope)
		}
	}

	keepFunctions := make(map[graph.Scope]bool, len(set.Functions))
	for _, spec := range set.Functions {
		keepFunctions[spec.Scope] = true
		r.InsertFunction(spec)
	}
	for _, spec := range r.ListFunctions() {
		if !keepFunctions[spec.Scope] {
			r.DeleteFunction(spec.Scope)
		}
	}

	keepProblems := make(map[graph.Scope]bool, len(set.Problems))
	for _, spec := range set.Problems {
		keepProblems[spec.Scope] = true
		r.InsertProblem(spec)
	}
	for _, spec := range r.ListProblems() {
		if !keepProblems[spec.Scope] {
			r.DeleteProblem(spec.Scope)
		}
	}
}

func (r *Registry) connectorScopes() []graph.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	scopes := make([]graph.Scope, 0, len(r.connectors))
	for scope := range r.connectors {
		scopes = append(scopes, scope)
	}
	return scopes
}

// LoadDir parses dir and applies it to the registry.
func (r *Registry) LoadDir(ctx context.Context, dir string) error {
	set, err := ParseDir(dir)
	if err != nil {
		return err
	}
	r.Apply(set)
	ctxlog.FromContext(ctx).Debug("resources loaded",
		"dir", dir,
		"connectors", len(set.Connectors),
		"functions", len(set.Functions),
		"problems", len(set.Problems),
	)
	return nil
}

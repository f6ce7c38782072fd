package graph

import (
	"slices"
)

// DependencyGraph records which beans depend on which.
// An edge dependent -> dependency is added every time a bean is injected
// into another one. Nodes are bean names.
//
// DependencyGraph is not safe for concurrent use.
type DependencyGraph struct {
	nodes        []string            // insertion order, used for deterministic iteration
	known        map[string]struct{} // membership for nodes
	dependencies map[string][]string // bean -> beans it depends on
	dependents   map[string][]string // bean -> beans depending on it
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		known:        make(map[string]struct{}),
		dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
	}
}

// addNode adds a node without edges. Adding an existing node is a no-op.
func (g *DependencyGraph) addNode(name string) {
	if _, ok := g.known[name]; ok {
		return
	}
	g.known[name] = struct{}{}
	g.nodes = append(g.nodes, name)
}

// AddEdge records that dependent needs dependency. Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(dependent, dependency string) {
	g.addNode(dependent)
	g.addNode(dependency)

	if slices.Contains(g.dependencies[dependent], dependency) {
		return
	}

	g.dependencies[dependent] = append(g.dependencies[dependent], dependency)
	g.dependents[dependency] = append(g.dependents[dependency], dependent)
}

// Contains reports whether the node is known to the graph.
func (g *DependencyGraph) Contains(name string) bool {
	_, ok := g.known[name]
	return ok
}

// Dependencies returns the direct dependencies of name.
func (g *DependencyGraph) Dependencies(name string) []string {
	return slices.Clone(g.dependencies[name])
}

// Dependents returns the beans that directly depend on name.
func (g *DependencyGraph) Dependents(name string) []string {
	return slices.Clone(g.dependents[name])
}

// IsDependent reports whether dependent depends on name, directly or transitively.
func (g *DependencyGraph) IsDependent(name, dependent string) bool {
	seen := make(map[string]struct{})
	queue := []string{name}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range g.dependents[current] {
			if d == dependent {
				return true
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			queue = append(queue, d)
		}
	}

	return false
}

// Remove deletes a node and all edges touching it.
// It returns the beans that depended on the removed node.
func (g *DependencyGraph) Remove(name string) []string {
	if !g.Contains(name) {
		return nil
	}

	dependents := g.dependents[name]

	for _, dep := range g.dependencies[name] {
		g.dependents[dep] = slices.DeleteFunc(g.dependents[dep], func(s string) bool { return s == name })
	}
	for _, d := range dependents {
		g.dependencies[d] = slices.DeleteFunc(g.dependencies[d], func(s string) bool { return s == name })
	}

	delete(g.dependencies, name)
	delete(g.dependents, name)
	delete(g.known, name)
	g.nodes = slices.DeleteFunc(g.nodes, func(s string) bool { return s == name })

	return dependents
}

// Clear removes every node and edge.
func (g *DependencyGraph) Clear() {
	g.nodes = nil
	g.known = make(map[string]struct{})
	g.dependencies = make(map[string][]string)
	g.dependents = make(map[string][]string)
}

// TopologicalSort orders the given names so that every dependency comes before
// its dependents. Names unknown to the graph are kept and treated as having no
// edges. Ties keep the order of the input, which makes the result deterministic.
func (g *DependencyGraph) TopologicalSort(names []string) ([]string, error) {
	included := make(map[string]bool, len(names))
	for _, n := range names {
		included[n] = true
	}

	// Kahn's algorithm restricted to the requested names.
	inDegree := make(map[string]int, len(names))
	for _, n := range names {
		for _, dep := range g.dependencies[n] {
			if included[dep] && dep != n {
				inDegree[n]++
			}
		}
	}

	result := make([]string, 0, len(names))
	done := make(map[string]bool, len(names))

	for len(result) < len(names) {
		progressed := false
		for _, n := range names {
			if done[n] || inDegree[n] > 0 {
				continue
			}

			done[n] = true
			result = append(result, n)
			progressed = true

			for _, d := range g.dependents[n] {
				if included[d] && !done[d] {
					inDegree[d]--
				}
			}
		}

		if !progressed {
			remaining := make([]string, 0, len(names)-len(result))
			for _, n := range names {
				if !done[n] {
					remaining = append(remaining, n)
				}
			}
			return nil, CircularDependencyError{Path: g.cyclePath(remaining)}
		}
	}

	return result, nil
}

// cyclePath walks dependency edges among the remaining nodes until a node repeats.
func (g *DependencyGraph) cyclePath(remaining []string) []string {
	if len(remaining) == 0 {
		return nil
	}

	inSet := make(map[string]bool, len(remaining))
	for _, n := range remaining {
		inSet[n] = true
	}

	index := make(map[string]int)
	path := []string{}
	current := remaining[0]

	for {
		if i, seen := index[current]; seen {
			return path[i:]
		}

		index[current] = len(path)
		path = append(path, current)

		next := ""
		for _, dep := range g.dependencies[current] {
			if inSet[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		current = next
	}
}

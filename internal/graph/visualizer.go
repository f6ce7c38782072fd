package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format.
// Edges point from a bean to the beans it depends on.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph beans {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[string]string, len(v.graph.nodes))
	for i, name := range v.graph.nodes {
		id := fmt.Sprintf("n%d", i)
		ids[name] = id

		color := "lightblue"
		if len(v.graph.dependents[name]) == 0 {
			color = "lightyellow"
		}

		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n", id, name, color)
	}

	for _, from := range v.graph.nodes {
		for _, to := range v.graph.dependencies[from] {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[from], ids[to])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAdjacencyList writes one line per bean: "name -> [deps]".
func (v *Visualizer) WriteAdjacencyList(w io.Writer) error {
	var b strings.Builder

	for _, from := range v.graph.nodes {
		fmt.Fprintf(&b, "%s -> [%s]\n", from, strings.Join(v.graph.dependencies[from], ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

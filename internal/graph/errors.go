package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError represents a cycle between beans.
// Path lists the beans in the cycle; the first entry is repeated implicitly at the end.
type CircularDependencyError struct {
	Path []string
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")
	b.WriteString(FormatCycle(e.Path))
	return b.String()
}

// FormatCycle renders a chain of bean names as a vertical cycle diagram.
// When the last name equals the first the chain already closes on itself,
// otherwise the first name is appended as the cycle target.
func FormatCycle(path []string) string {
	if len(path) == 0 {
		return ""
	}

	closed := len(path) > 1 && path[0] == path[len(path)-1]
	if closed {
		path = path[:len(path)-1]
	}

	var b strings.Builder
	for i, name := range path {
		b.WriteString(fmt.Sprintf("    %s\n", name))
		if i < len(path)-1 {
			b.WriteString("      ↓\n")
		}
	}
	b.WriteString("      ↓\n")
	b.WriteString(fmt.Sprintf("    %s (cycle)\n", path[0]))

	return b.String()
}

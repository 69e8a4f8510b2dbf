package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart (graph TD) of a module tree.
// It applies semantic styling:
// - Root: ((Circle))
// - Composite (has children): [[Subroutine]]
// - Leaf: [Rectangle]
// Each node is classed by its current lifecycle state.
func GenerateMermaid(root *lattice.Module) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	states := make(map[domain.LifecycleState][]string)
	writeNode(&sb, root, true, states)

	sb.WriteString("\n    %% Lifecycle Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds.
	sb.WriteString("    classDef loaded fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef suspended fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef transitioning fill:#fff8e1,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef terminated fill:#eceff1,stroke:#607d8b,stroke-dasharray: 5 5,color:#000;\n")

	for state, ids := range states {
		class := styleClass(state)
		for _, id := range ids {
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", id, class))
		}
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, m *lattice.Module, isRoot bool, states map[domain.LifecycleState][]string) {
	safeID := sanitizeMermaidID(m.Name())
	state := m.State()

	opener, closer := "[", "]"
	children := m.Children()
	switch {
	case isRoot:
		opener, closer = "((", "))"
	case len(children) > 0:
		opener, closer = "[[", "]]"
	}

	sb.WriteString(fmt.Sprintf("    %s%s\"%s <br/> %s\"%s\n", safeID, opener, m.Name(), state, closer))
	states[state] = append(states[state], safeID)

	for _, child := range children {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(child.Name())))
		writeNode(sb, child, false, states)
	}
}

func styleClass(state domain.LifecycleState) string {
	switch state {
	case domain.StateLoaded:
		return "loaded"
	case domain.StateSuspended:
		return "suspended"
	case domain.StateUnloaded:
		return "terminated"
	default:
		return "transitioning"
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice"
)

// StatusReport builds a markdown summary of a module tree: one bullet per
// module with its current lifecycle state, indented by depth.
func StatusReport(root *lattice.Module) string {
	var sb strings.Builder
	sb.WriteString("# Module Tree\n\n")
	writeStatus(&sb, root, 0)
	return sb.String()
}

func writeStatus(sb *strings.Builder, m *lattice.Module, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(fmt.Sprintf("%s- **%s** `%s`\n", indent, m.Name(), m.State()))
	for _, child := range m.Children() {
		writeStatus(sb, child, depth+1)
	}
}

package weaver

import (
	"fmt"
	"slices"
	"strings"
)

var stateStyle = map[State]string{
	UpToDate:   `color="green"`,
	OutOfDate:  `color="red"`,
	Superseded: `color="grey"`,
	Phantom:    `color="black", style="dashed"`,
}

// Render returns the nodes in scope as a Graphviz digraph, one cluster per
// kind. Edges point from the owner to the input target. With allEdges false
// only edges between nodes in scope are drawn; with allEdges true every edge
// touching the scope is drawn, its outside end as a bare node.
func (w *Weaver) Render(allEdges bool) string {
	inScope := make([]*Node, 0, len(w.scope))
	for i := range w.scope {
		inScope = append(inScope, w.nodes[i])
	}

	clusters := ClusterByKind(inScope)

	var sb strings.Builder

	sb.WriteString("digraph {\n")
	sb.WriteString("  rankdir=\"LR\";\n")
	sb.WriteString("  node [shape=\"box\", style=\"rounded\"];\n")

	for _, kind := range sortedKinds(clusters) {
		group := clusters[kind]

		fmt.Fprintf(&sb, "  subgraph %s {\n", quote("cluster_"+kind))
		fmt.Fprintf(&sb, "    label=%s;\n", quote(group[0].Name))

		for _, n := range group {
			fmt.Fprintf(&sb, "    %s [label=%s, %s];\n",
				quote(n.ContentID), label(n.Name, n.FreezeTime.String()), stateStyle[n.State])
		}

		sb.WriteString("  }\n")
	}

	everything := ClusterByKind(w.nodes)

	for _, kind := range sortedKinds(everything) {
		for _, n := range everything[kind] {
			ownerIn := w.inScope(n.ContentID)

			for _, in := range n.Inputs {
				targetIn := w.inScope(in.ContentID)

				if allEdges && !ownerIn && !targetIn || !allEdges && !(ownerIn && targetIn) {
					continue
				}

				fmt.Fprintf(&sb, "  %s -> %s [label=%s];\n", quote(n.ContentID), quote(in.ContentID), quote(in.Name))
			}
		}
	}

	sb.WriteString("}\n")

	return sb.String()
}

func sortedKinds(clusters map[string][]*Node) []string {
	kinds := make([]string, 0, len(clusters))
	for kind := range clusters {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	return kinds
}

func (w *Weaver) inScope(contentID string) bool {
	i, ok := w.byID[contentID]
	if !ok {
		return false
	}

	_, ok = w.scope[i]

	return ok
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// label joins lines with the DOT line break escape.
func label(lines ...string) string {
	quoted := make([]string, len(lines))
	for i, l := range lines {
		quoted[i] = dotEscaper.Replace(l)
	}

	return `"` + strings.Join(quoted, `\n`) + `"`
}

// Package weaver builds the dependency graph of beads, classifies every bead
// by freshness and renders the graph as a Graphviz digraph.
//
// A [Weaver] is a one-shot query object: states are computed once in [New]
// and never change. Only the render scope can be narrowed afterwards.
package weaver

import (
	"cmp"
	"slices"

	"github.com/calvinalkan/bead/internal/bead"
)

// State is the freshness classification of a node.
type State string

const (
	UpToDate   State = "UP_TO_DATE"
	OutOfDate  State = "OUT_OF_DATE"
	Superseded State = "SUPERSEDED"
	Phantom    State = "PHANTOM"
)

// Bead is one row of the feed: a stored bead and the inputs it was frozen with.
type Bead struct {
	Name       string
	Kind       string
	ContentID  string
	FreezeTime bead.FreezeTime
	Inputs     []bead.Input
}

// Node is a bead in the graph. Phantom nodes stand in for input targets that
// were never stored; they carry what the input edge knows about the target.
type Node struct {
	Name       string
	Kind       string
	ContentID  string
	FreezeTime bead.FreezeTime
	Inputs     []bead.Input
	State      State
	Phantom    bool
}

// visit tracks the resolver's progress on a node.
type visit uint8

const (
	unvisited visit = iota
	inProgress
	done
)

// Weaver holds the node table. Nodes are addressed by index; byID maps a
// content id to its index.
type Weaver struct {
	nodes []*Node
	byID  map[string]int
	scope map[int]struct{}

	// resolver scratch, only used during New
	visits     []visit
	candidates []bool
}

// New builds the graph from beads. Later records with an already seen
// content id are ignored. Every input target without a bead becomes exactly
// one phantom node.
func New(beads []Bead) *Weaver {
	w := &Weaver{byID: make(map[string]int, len(beads))}

	for _, b := range beads {
		if _, ok := w.byID[b.ContentID]; ok {
			continue
		}

		w.add(&Node{
			Name:       b.Name,
			Kind:       b.Kind,
			ContentID:  b.ContentID,
			FreezeTime: b.FreezeTime,
			Inputs:     slices.Clone(b.Inputs),
		})
	}

	stored := len(w.nodes)
	for i := range stored {
		for _, in := range w.nodes[i].Inputs {
			if _, ok := w.byID[in.ContentID]; ok {
				continue
			}

			w.add(&Node{
				Name:       in.Name,
				Kind:       in.Kind,
				ContentID:  in.ContentID,
				FreezeTime: in.FreezeTime,
				State:      Phantom,
				Phantom:    true,
			})
		}
	}

	w.markCandidates()

	w.visits = make([]visit, len(w.nodes))
	for i := range w.nodes {
		w.resolve(i)
	}

	w.visits = nil
	w.candidates = nil

	w.scope = make(map[int]struct{}, len(w.nodes))
	for i := range w.nodes {
		w.scope[i] = struct{}{}
	}

	return w
}

func (w *Weaver) add(n *Node) {
	w.byID[n.ContentID] = len(w.nodes)
	w.nodes = append(w.nodes, n)
}

// markCandidates flags the real nodes holding the newest freeze time of
// their kind. Every node sharing the maximum is a candidate.
func (w *Weaver) markCandidates() {
	newest := make(map[string]bead.FreezeTime)

	for _, n := range w.nodes {
		if n.Phantom {
			continue
		}

		if cur, ok := newest[n.Kind]; !ok || n.FreezeTime.Compare(cur) > 0 {
			newest[n.Kind] = n.FreezeTime
		}
	}

	w.candidates = make([]bool, len(w.nodes))
	for i, n := range w.nodes {
		w.candidates[i] = !n.Phantom && n.FreezeTime.Equal(newest[n.Kind])
	}
}

// resolve computes and memoizes the state of node i. A node met again while
// its own inputs are being resolved is part of a cycle and counts as
// OUT_OF_DATE.
func (w *Weaver) resolve(i int) State {
	n := w.nodes[i]

	switch w.visits[i] {
	case done:
		return n.State
	case inProgress:
		return OutOfDate
	case unvisited:
	}

	w.visits[i] = inProgress

	switch {
	case n.Phantom:
		n.State = Phantom
	case !w.candidates[i]:
		n.State = Superseded
	default:
		n.State = UpToDate

		for _, in := range n.Inputs {
			if w.resolve(w.byID[in.ContentID]) != UpToDate {
				n.State = OutOfDate

				break
			}
		}
	}

	w.visits[i] = done

	return n.State
}

// Node returns the node with contentID.
func (w *Weaver) Node(contentID string) (*Node, bool) {
	i, ok := w.byID[contentID]
	if !ok {
		return nil, false
	}

	return w.nodes[i], true
}

// Nodes returns every node, real ones first in feed order, then phantoms.
func (w *Weaver) Nodes() []*Node {
	return slices.Clone(w.nodes)
}

// Scope returns the content ids that Render draws, sorted.
func (w *Weaver) Scope() []string {
	ids := make([]string, 0, len(w.scope))
	for i := range w.scope {
		ids = append(ids, w.nodes[i].ContentID)
	}

	slices.Sort(ids)

	return ids
}

// RestrictTo narrows the render scope to the roots and everything reachable
// from them along input edges, and returns the new scope sorted. Unknown
// roots are ignored. Lineage siblings are not pulled in.
func (w *Weaver) RestrictTo(roots []string) []string {
	scope := make(map[int]struct{})
	stack := make([]int, 0, len(roots))

	for _, id := range roots {
		if i, ok := w.byID[id]; ok {
			stack = append(stack, i)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := scope[i]; seen {
			continue
		}

		scope[i] = struct{}{}

		for _, in := range w.nodes[i].Inputs {
			stack = append(stack, w.byID[in.ContentID])
		}
	}

	w.scope = scope

	return w.Scope()
}

// ClusterByKind groups nodes by kind. Each group is ordered newest first;
// nodes frozen at the same time are ordered by content id.
func ClusterByKind(nodes []*Node) map[string][]*Node {
	clusters := make(map[string][]*Node)
	for _, n := range nodes {
		clusters[n.Kind] = append(clusters[n.Kind], n)
	}

	for _, group := range clusters {
		slices.SortFunc(group, newestFirst)
	}

	return clusters
}

func newestFirst(a, b *Node) int {
	if c := b.FreezeTime.Compare(a.FreezeTime); c != 0 {
		return c
	}

	return cmp.Compare(a.ContentID, b.ContentID)
}

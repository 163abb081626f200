package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/ir"
)

// CycleWarning represents a cycle found in a compiled document.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - A trigger chain that re-enters itself through an action's output
//     event (a retry or polling loop)
//   - A struct that embeds itself directly, which generators can only
//     render as an optional or lazily loaded value
type CycleWarning struct {
	Kind    string   `json:"kind"`    // "trigger" or "struct"
	Path    []string `json:"path"`    // Cycle path of ids: ["trg-a", "trg-b", "trg-a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles reports trigger chains and struct embeddings that loop.
//
// The algorithm:
//  1. Build a trigger → trigger graph: T fires T2 when T invokes an action
//     whose action_output event is T2's event.
//  2. Build a struct → struct graph from direct (non-list) struct fields.
//  3. Use Tarjan's algorithm to find strongly connected components.
//  4. Report each SCC with size > 1 or a self-loop.
//
// Output is sorted, so repeated runs report identical warnings.
func AnalyzeCycles(doc *ir.Document) []CycleWarning {
	warnings := []CycleWarning{}
	warnings = append(warnings, cyclesIn("trigger", triggerGraph(doc))...)
	warnings = append(warnings, cyclesIn("struct", structGraph(doc))...)
	return warnings
}

// dependencyGraph maps node id → ids it leads to.
type dependencyGraph map[string][]string

func triggerGraph(doc *ir.Document) dependencyGraph {
	// action id → triggers whose event is that action's output
	firedBy := map[string][]string{}
	eventAction := map[string]string{}
	for _, e := range doc.Events {
		if e.Kind == ast.EventActionOutput {
			eventAction[e.ID] = e.ActionID
		}
	}
	for _, t := range doc.Triggers {
		if action, ok := eventAction[t.EventID]; ok {
			firedBy[action] = append(firedBy[action], t.ID)
		}
	}

	graph := make(dependencyGraph, len(doc.Triggers))
	for _, t := range doc.Triggers {
		graph[t.ID] = append([]string{}, firedBy[t.ActionID]...)
	}
	return graph
}

func structGraph(doc *ir.Document) dependencyGraph {
	graph := make(dependencyGraph, len(doc.Structs))
	for _, s := range doc.Structs {
		edges := []string{}
		for _, f := range s.Fields {
			if ref, ok := f.Type.(ir.StructRef); ok {
				edges = append(edges, ref.StructID)
			}
		}
		graph[s.ID] = edges
	}
	return graph
}

func cyclesIn(kind string, graph dependencyGraph) []CycleWarning {
	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, sccToWarning(kind, scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(strings.Join(a.Path, ","), strings.Join(b.Path, ","))
	})
	return warnings
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes and edges are visited in sorted order.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		next := slices.Clone(graph[v])
		slices.Sort(next)
		for _, w := range next {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToWarning(kind string, scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Kind:    kind,
			Path:    []string{id, id},
			Message: fmt.Sprintf("%s %s refers to itself", kind, id),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf("%s cycle detected: %s", kind, strings.Join(path, " → ")),
	}
}

// reconstructCyclePath walks edges inside the SCC from its smallest id
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}

	for {
		visited[current] = true

		next := ""
		edges := slices.Clone(graph[current])
		slices.Sort(edges)
		for _, neighbor := range edges {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

package layout

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sollayout/internal/ir"
)

// Cycle is a by-value reference cycle between structs.
type Cycle struct {
	Path    []string `json:"path"`    // e.g. ["A", "B", "A"]
	Members []string `json:"members"` // every struct in the component
	Message string   `json:"message"` // human-readable description
}

// AnalyzeCycles finds every by-value reference cycle among the structs of
// unit, without laying anything out.
//
// A struct references another by value through a plain field or through a
// fixed-size array of it. References through mappings and dynamic arrays
// are not edges: their data lives at hashed locations.
//
// The algorithm:
//  1. Build the struct → struct by-value reference graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// Cycles are ordered by the declaration position of their first struct.
// Struct names are qualified by their contract only where a bare name is
// declared in more than one contract.
func AnalyzeCycles(unit *ir.Unit) []Cycle {
	idx := newStructIndex(unit)
	graph := buildReferenceGraph(idx)

	var cycles []Cycle
	for _, scc := range cyclicComponents(idx) {
		path := idx.names(reconstructCyclePath(scc, graph))
		cycles = append(cycles, Cycle{
			Path:    path,
			Members: idx.names(scc),
			Message: fmt.Sprintf("struct contains itself by value: %s", strings.Join(path, " → ")),
		})
	}
	return cycles
}

// cyclicComponents returns the struct keys of every component that forms a
// cycle, each sorted by declaration position, components ordered by their
// first member.
func cyclicComponents(idx *structIndex) [][]string {
	if len(idx.order) == 0 {
		return nil
	}
	graph := buildReferenceGraph(idx)

	position := make(map[string]int, len(idx.order))
	for i, key := range idx.order {
		position[key] = i
	}

	var sccs [][]string
	for _, scc := range tarjanSCC(graph, idx.order) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		slices.SortFunc(scc, func(a, b string) int { return position[a] - position[b] })
		sccs = append(sccs, scc)
	}
	slices.SortFunc(sccs, func(a, b []string) int { return position[a[0]] - position[b[0]] })
	return sccs
}

// referenceGraph maps a struct key to the structs it embeds by value, in
// field order.
type referenceGraph map[string][]string

func buildReferenceGraph(idx *structIndex) referenceGraph {
	graph := make(referenceGraph, len(idx.order))
	for _, key := range idx.order {
		def := idx.defs[key]
		graph[key] = []string{}

		for _, f := range def.Fields {
			e, err := parseTypeExpr(f.Type)
			if err != nil {
				continue
			}
			target, ok := embeddedStruct(e)
			if !ok {
				continue
			}
			if k, found, _ := idx.lookup(target, def.Scope); found {
				graph[key] = append(graph[key], k)
			}
		}
	}
	return graph
}

// embeddedStruct returns the name a type stores by value, looking through
// fixed-size arrays only.
func embeddedStruct(e *typeExpr) (string, bool) {
	for e.kind == exprArray && e.length != "" {
		e = e.elem
	}
	if e.kind != exprName {
		return "", false
	}
	return e.name, true
}

func hasSelfLoop(node string, graph referenceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so results are deterministic.
func tarjanSCC(graph referenceGraph, order []string) [][]string {
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

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC
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
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath returns a shortest cycle through the SCC's first
// member, staying inside the SCC. The path repeats the start at the end.
func reconstructCyclePath(scc []string, graph referenceGraph) []string {
	start := scc[0]
	if hasSelfLoop(start, graph) {
		return []string{start, start}
	}

	member := make(map[string]bool, len(scc))
	for _, node := range scc {
		member[node] = true
	}

	// Breadth-first search from start back to start.
	parent := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range graph[current] {
			if !member[next] {
				continue
			}
			if next == start {
				path := []string{start}
				for n := current; n != start; n = parent[n] {
					path = append(path, n)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if _, seen := parent[next]; !seen {
				parent[next] = current
				queue = append(queue, next)
			}
		}
	}
	return []string{start, start}
}

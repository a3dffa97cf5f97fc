package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/incus-composer/incus-composer/pkg/compose"
)

// startGraph is the depends_on relation of a document, prepared for cycle
// detection and start-plan computation. Self references and edges to
// unknown containers are excluded while building; those defects are
// reported by their own validation checks.
type startGraph struct {
	doc *compose.IncusCompose

	// names holds every container name in lexicographic order. All
	// traversals iterate this slice, never the maps, so results are
	// reproducible.
	names []string

	// dependencies maps a container to the containers it depends on,
	// in document order with duplicates removed.
	dependencies map[string][]string

	// dependents maps a container to the containers depending on it,
	// sorted by name.
	dependents map[string][]string

	// inDegree counts each container's distinct dependencies.
	inDegree map[string]int
}

// newStartGraph builds the dependency graph for a document.
func newStartGraph(doc *compose.IncusCompose) *startGraph {
	g := &startGraph{
		doc:          doc,
		names:        doc.ContainerNames(),
		dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
		inDegree:     make(map[string]int),
	}

	for _, name := range g.names {
		seen := make(map[string]bool)
		for _, dep := range doc.Containers[name].DependsOn {
			if dep == name || seen[dep] {
				continue
			}
			if _, ok := doc.Containers[dep]; !ok {
				continue
			}
			seen[dep] = true
			g.dependencies[name] = append(g.dependencies[name], dep)
			g.dependents[dep] = append(g.dependents[dep], name)
			g.inDegree[name]++
		}
	}

	for _, dependents := range g.dependents {
		sort.Strings(dependents)
	}
	return g
}

// cycles returns the dependency cycles found by depth-first traversal, in
// deterministic order. Each cycle lists its members in dependency order,
// rotated so the smallest name comes first. Reported cycles are vertex
// disjoint; a cycle sharing members with one already reported only
// surfaces once that one is fixed and the document revalidated.
func (g *startGraph) cycles() [][]string {
	visited := make(map[string]bool)
	var found [][]string

	for _, root := range g.names {
		if visited[root] {
			continue
		}

		inStack := make(map[string]bool)
		var path []string

		var visit func(name string) []string
		visit = func(name string) []string {
			visited[name] = true
			inStack[name] = true
			path = append(path, name)

			for _, dep := range g.dependencies[name] {
				if inStack[dep] {
					start := 0
					for i, n := range path {
						if n == dep {
							start = i
							break
						}
					}
					cycle := make([]string, len(path)-start)
					copy(cycle, path[start:])
					return rotateToSmallest(cycle)
				}
				if !visited[dep] {
					if cycle := visit(dep); cycle != nil {
						return cycle
					}
				}
			}

			path = path[:len(path)-1]
			inStack[name] = false
			return nil
		}

		if cycle := visit(root); cycle != nil {
			found = append(found, cycle)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i][0] < found[j][0] })
	return found
}

// rotateToSmallest rotates a cycle so the lexicographically smallest
// member comes first, giving a canonical form independent of where the
// traversal entered the loop.
func rotateToSmallest(cycle []string) []string {
	smallest := 0
	for i, name := range cycle {
		if name < cycle[smallest] {
			smallest = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[smallest:]...)
	out = append(out, cycle[:smallest]...)
	return out
}

// plan computes the start plan by Kahn's algorithm, one level per round of
// ready containers. Within a level, higher boot_priority starts first and
// equal priorities order by name. The graph must be acyclic; Resolve
// verifies that before calling.
func (g *startGraph) plan() StartPlan {
	inDegree := make(map[string]int, len(g.names))
	for _, name := range g.names {
		inDegree[name] = g.inDegree[name]
	}

	var ready []string
	for _, name := range g.names {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	g.sortByStartRank(ready)

	var plan StartPlan
	for len(ready) > 0 {
		level := make([]string, len(ready))
		copy(level, ready)
		plan.Levels = append(plan.Levels, level)
		plan.Order = append(plan.Order, level...)

		var next []string
		for _, name := range ready {
			for _, dependent := range g.dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		g.sortByStartRank(next)
		ready = next
	}
	return plan
}

// sortByStartRank sorts names in place by descending boot_priority, then
// lexicographically.
func (g *startGraph) sortByStartRank(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := g.doc.Containers[names[i]], g.doc.Containers[names[j]]
		if a.BootPriority != b.BootPriority {
			return a.BootPriority > b.BootPriority
		}
		return names[i] < names[j]
	})
}

// dot renders the graph in Graphviz DOT format with one cluster per start
// level. Edges point from a dependency to its dependents, the direction
// containers start in.
func (g *startGraph) dot() string {
	var b strings.Builder
	b.WriteString("digraph start_plan {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	plan := g.plan()
	for i, level := range plan.Levels {
		fmt.Fprintf(&b, "  subgraph cluster_level_%d {\n", i)
		fmt.Fprintf(&b, "    label=\"level %d\";\n", i)
		b.WriteString("    style=dashed;\n")
		for _, name := range level {
			fmt.Fprintf(&b, "    %q;\n", name)
		}
		b.WriteString("  }\n\n")
	}

	for _, name := range g.names {
		for _, dep := range g.dependencies[name] {
			fmt.Fprintf(&b, "  %q -> %q;\n", dep, name)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

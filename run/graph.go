package run

import (
	"fmt"
	"sort"

	"github.com/kbukum/convoy/errors"
)

// Levels groups node names by dependency level using Kahn's algorithm.
// Nodes within the same level have no dependency path between them and may
// be gathered in parallel. Returns an error if the plan contains a cycle.
func Levels(nodes map[string]NodeSpec) ([][]string, error) {
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)

	for name := range nodes {
		inDegree[name] = 0
	}

	for name, spec := range nodes {
		for _, dep := range spec.DependsOn {
			if _, ok := nodes[dep]; !ok {
				return nil, errors.InvalidRun(fmt.Sprintf("node %q depends on unknown node %q", name, dep))
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	var levels [][]string
	visited := 0

	for len(queue) > 0 {
		sort.Strings(queue) // deterministic order within a level
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(nodes) {
		return nil, errors.InvalidRun(fmt.Sprintf("dependency cycle detected, resolved %d of %d nodes", visited, len(nodes)))
	}

	return levels, nil
}

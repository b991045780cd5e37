package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gammazero/toposort"
)

// DAG is the dependency graph of a lot's tasks. Edges point from a
// predecessor to the tasks that depend on it.
type DAG struct {
	ids          []string            // Insertion order
	predecessors map[string][]string // taskID -> predecessor IDs
	dependents   map[string][]string // taskID -> IDs of tasks that depend on it
}

// NewDAG creates an empty DAG.
func NewDAG() *DAG {
	return &DAG{
		predecessors: make(map[string][]string),
		dependents:   make(map[string][]string),
	}
}

// AddTask adds a node and its incoming edges. Returns a ConfigurationError if
// the ID is empty or already present.
func (d *DAG) AddTask(id string, deps []Dependency) error {
	if strings.TrimSpace(id) == "" {
		return configErrorf("", "task ID must not be empty")
	}
	if _, exists := d.predecessors[id]; exists {
		return configErrorf(id, "duplicate task ID")
	}

	preds := make([]string, 0, len(deps))
	for _, dep := range deps {
		preds = append(preds, dep.PredecessorID)
		d.dependents[dep.PredecessorID] = append(d.dependents[dep.PredecessorID], id)
	}

	d.ids = append(d.ids, id)
	d.predecessors[id] = preds
	return nil
}

// Validate checks that every predecessor exists and that the graph is
// acyclic. It returns task IDs in a dependency-respecting order.
func (d *DAG) Validate() ([]string, error) {
	for _, id := range d.ids {
		for _, predID := range d.predecessors[id] {
			if _, exists := d.predecessors[predID]; !exists {
				return nil, configErrorf(id, "depends on unknown task %q", predID)
			}
		}
	}

	var edges []toposort.Edge
	for _, id := range d.ids {
		preds := d.predecessors[id]
		if len(preds) == 0 {
			// Root nodes still need to appear in the sort output
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, predID := range preds {
			edges = append(edges, toposort.Edge{predID, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, &ConfigurationError{Reason: "dependency graph contains a cycle", Err: err}
	}

	order := make([]string, 0, len(d.ids))
	seen := make(map[string]bool, len(d.ids))
	for _, node := range sorted {
		id, ok := node.(string)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}

	if len(order) != len(d.ids) {
		var missing []string
		for _, id := range d.ids {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("topological sort lost %d tasks: %s", len(missing), strings.Join(missing, ", ")),
		}
	}

	return order, nil
}

// Dependents returns the IDs of tasks that name id as a direct predecessor.
func (d *DAG) Dependents(id string) []string {
	return append([]string(nil), d.dependents[id]...)
}

// Len returns the number of tasks in the graph.
func (d *DAG) Len() int {
	return len(d.ids)
}

// BuildDAG creates a DAG from a lot's tasks.
func BuildDAG(tasks []Task) (*DAG, error) {
	dag := NewDAG()
	for i := range tasks {
		if err := dag.AddTask(tasks[i].ID, tasks[i].Dependencies); err != nil {
			return nil, err
		}
	}
	return dag, nil
}

// ValidateGraph checks tasks for duplicate IDs, unknown predecessors and
// cycles, and returns their IDs in dependency order.
func ValidateGraph(tasks []Task) ([]string, error) {
	dag, err := BuildDAG(tasks)
	if err != nil {
		return nil, err
	}
	return dag.Validate()
}

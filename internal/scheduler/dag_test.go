package scheduler

import (
	"errors"
	"strings"
	"testing"
)

func fs(pred string) []Dependency {
	return []Dependency{{PredecessorID: pred, Relation: FinishToStart}}
}

// TestDAGValidate tests graph validation with various structures.
func TestDAGValidate(t *testing.T) {
	tests := []struct {
		name        string
		setup       func() *DAG
		wantErr     bool
		errContains string
	}{
		{
			name: "valid linear chain",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", nil)
				dag.AddTask("B", fs("A"))
				dag.AddTask("C", fs("B"))
				return dag
			},
			wantErr: false,
		},
		{
			name: "valid parallel tasks",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", nil)
				dag.AddTask("B", nil)
				dag.AddTask("C", append(fs("A"), fs("B")...))
				return dag
			},
			wantErr: false,
		},
		{
			name: "single task no deps",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", nil)
				return dag
			},
			wantErr: false,
		},
		{
			name: "direct cycle",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", fs("B"))
				dag.AddTask("B", fs("A"))
				return dag
			},
			wantErr:     true,
			errContains: "cycle",
		},
		{
			name: "transitive cycle",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", fs("B"))
				dag.AddTask("B", fs("C"))
				dag.AddTask("C", fs("A"))
				return dag
			},
			wantErr:     true,
			errContains: "cycle",
		},
		{
			name: "self-loop",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", fs("A"))
				return dag
			},
			wantErr:     true,
			errContains: "cycle",
		},
		{
			name: "missing dependency",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", fs("nonexistent"))
				return dag
			},
			wantErr:     true,
			errContains: "nonexistent",
		},
		{
			name: "duplicate task ID",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", nil)
				// Attempting to add the same ID again should fail at AddTask
				err := dag.AddTask("A", nil)
				if err == nil {
					t.Fatal("Expected error when adding duplicate task ID")
				}
				return dag
			},
			wantErr: false, // Validate should succeed since duplicate was rejected
		},
		{
			name: "disconnected components",
			setup: func() *DAG {
				dag := NewDAG()
				dag.AddTask("A", nil)
				dag.AddTask("B", fs("A"))
				dag.AddTask("C", nil)
				dag.AddTask("D", fs("C"))
				return dag
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dag := tt.setup()
			order, err := dag.Validate()

			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err != nil {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected *ConfigurationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Error message %q doesn't contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if len(order) != dag.Len() {
				t.Errorf("Expected %d tasks in order, got %d: %v", dag.Len(), len(order), order)
			}
		})
	}
}

// TestDAGValidateOrderRespectsEdges verifies every predecessor precedes its dependents.
func TestDAGValidateOrderRespectsEdges(t *testing.T) {
	dag := NewDAG()
	dag.AddTask("frame", fs("slab"))
	dag.AddTask("slab", nil)
	dag.AddTask("roof", fs("frame"))
	dag.AddTask("drywall", []Dependency{
		{PredecessorID: "frame", Relation: FinishToStart},
		{PredecessorID: "roof", Relation: StartToStart},
	})

	order, err := dag.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	edges := [][2]string{{"slab", "frame"}, {"frame", "roof"}, {"frame", "drywall"}, {"roof", "drywall"}}
	for _, e := range edges {
		if pos[e[0]] >= pos[e[1]] {
			t.Errorf("expected %s before %s in %v", e[0], e[1], order)
		}
	}
}

func TestDAGDependents(t *testing.T) {
	dag := NewDAG()
	dag.AddTask("A", nil)
	dag.AddTask("B", fs("A"))
	dag.AddTask("C", fs("A"))

	deps := dag.Dependents("A")
	if len(deps) != 2 || deps[0] != "B" || deps[1] != "C" {
		t.Errorf("Dependents(A) = %v, want [B C]", deps)
	}
	if got := dag.Dependents("C"); len(got) != 0 {
		t.Errorf("Dependents(C) = %v, want none", got)
	}
}

func TestDAGAddTaskRejectsEmptyID(t *testing.T) {
	dag := NewDAG()
	if err := dag.AddTask("  ", nil); err == nil {
		t.Error("expected error for blank task ID")
	}
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []Task
		wantErr string
	}{
		{
			name:  "ordered",
			tasks: []Task{{ID: "B", Dependencies: fs("A")}, {ID: "A"}},
		},
		{
			name:    "duplicate",
			tasks:   []Task{{ID: "A"}, {ID: "A"}},
			wantErr: "duplicate",
		},
		{
			name:    "unknown predecessor",
			tasks:   []Task{{ID: "A", Dependencies: fs("ghost")}},
			wantErr: "ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := ValidateGraph(tt.tasks)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateGraph() error = %v", err)
				}
				if len(order) != 2 || order[0] != "A" {
					t.Errorf("order = %v, want A first", order)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateGraph() error = %v, want ConfigurationError mentioning %q", err, tt.wantErr)
			}
		})
	}
}

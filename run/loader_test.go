package run

import (
	"os"
	"path/filepath"
	"testing"
)

func writePlan(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestLoadPlan(t *testing.T) {
	path := writePlan(t, `
host_run_id: 42
nodes:
  - name: builder
    ref: v1.0.0
    bridge: trigger-builder
    job_pattern: run
    outputs:
      - report.txt
  - name: scanner
    ref: v0.3.0
    bridge: trigger-scanner
    job_pattern: scan
    depends_on:
      - builder
    slot: scan-results
`)

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan failed: %v", err)
	}
	if plan.HostRunID != 42 {
		t.Errorf("host_run_id = %d, want 42", plan.HostRunID)
	}
	if len(plan.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(plan.Nodes))
	}
	if plan.Nodes[1].Slot != "scan-results" || plan.Nodes[1].DependsOn[0] != "builder" {
		t.Errorf("unexpected scanner node: %+v", plan.Nodes[1])
	}

	// The loaded plan must construct a valid context.
	rc, err := NewContext(plan.HostRunID, testIdentity(), testBus(), plan.Nodes)
	if err != nil {
		t.Fatalf("NewContext over loaded plan failed: %v", err)
	}
	if len(rc.Nodes) != 2 {
		t.Errorf("expected 2 nodes in context, got %d", len(rc.Nodes))
	}
}

func TestLoadPlanEmpty(t *testing.T) {
	path := writePlan(t, "nodes: []\n")
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("expected error for empty plan")
	}
}

func TestLoadPlanMissingFile(t *testing.T) {
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing plan file")
	}
}

func TestLoadPlanMalformed(t *testing.T) {
	path := writePlan(t, "{{ not yaml")
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("expected error for malformed plan")
	}
}

package run

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Plan is the on-disk run definition: the static node DAG plus the host run
// it harvests from. The bus target and orchestrator identity come from
// configuration, not the plan, so one plan file serves every environment.
type Plan struct {
	// HostRunID is the pipeline host's identifier for the current run. Zero
	// means it is supplied at kickoff (typically from the host environment).
	HostRunID int64 `yaml:"host_run_id,omitempty"`
	// Nodes is the static node list. Dependency cycles are rejected at
	// context construction.
	Nodes []NodeSpec `yaml:"nodes"`
}

// LoadPlan reads a plan definition from a YAML file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("run: reading plan %s: %w", path, err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("run: parsing plan %s: %w", path, err)
	}
	if len(p.Nodes) == 0 {
		return Plan{}, fmt.Errorf("run: plan %s defines no nodes", path)
	}
	return p, nil
}

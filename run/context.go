package run

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kbukum/convoy/errors"
)

// MetaFileName is the mandatory self-describing metadata file every node's
// artifact set must contain. Its contents are validated for shape only;
// semantic interpretation stays with human readers.
const MetaFileName = "meta.yml"

// NodeSpec is one DAG vertex: a named, independently versioned unit of work.
type NodeSpec struct {
	// Name is the unique node identifier in the plan.
	Name string `yaml:"name" validate:"required"`
	// Ref is the pinned version reference the node executes at.
	Ref string `yaml:"ref" validate:"required"`
	// DependsOn lists node names this node depends on. Must be acyclic.
	DependsOn []string `yaml:"depends_on,omitempty"`
	// Bridge is the trigger relationship name that spawned this node's
	// downstream unit of work.
	Bridge string `yaml:"bridge" validate:"required"`
	// JobPattern selects which downstream job's artifacts are harvested.
	JobPattern string `yaml:"job_pattern" validate:"required"`
	// Slot is the orchestrator-chosen namespaced slot name. Defaults to
	// the node name.
	Slot string `yaml:"slot,omitempty"`
	// Outputs are the relative paths the node's contract declares it must
	// produce, beyond the mandatory metadata file.
	Outputs []string `yaml:"outputs,omitempty"`
}

// Identity names the orchestrator in manifests and logs.
type Identity struct {
	Name string `validate:"required"`
	URL  string `validate:"omitempty,url"`
}

// BusTarget selects the durable store and its two logical packages.
type BusTarget struct {
	StoreID           string `validate:"required"`
	PrimaryPackage    string `validate:"required"`
	QuarantinePackage string `validate:"required,nefield=PrimaryPackage"`
}

// Context is the immutable description of one run. Created once at kickoff,
// never mutated, and terminated in exactly one of accepted, quarantined,
// or aborted.
type Context struct {
	// RunID is the opaque unique token used as the sole version key
	// downstream.
	RunID string `validate:"required"`
	// HostRunID is the pipeline host's identifier for the current run,
	// used to list its trigger relationships.
	HostRunID int64 `validate:"required"`
	// Orchestrator identifies the engine that produced the bundle.
	Orchestrator Identity
	// Bus selects the destination namespaces.
	Bus BusTarget
	// Nodes maps node name to its spec.
	Nodes map[string]NodeSpec `validate:"required,min=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewContext builds and validates a run context, generating a fresh run id.
func NewContext(hostRunID int64, orchestrator Identity, bus BusTarget, nodes []NodeSpec) (*Context, error) {
	byName := make(map[string]NodeSpec, len(nodes))
	for _, n := range nodes {
		if n.Slot == "" {
			n.Slot = n.Name
		}
		if _, dup := byName[n.Name]; dup {
			return nil, errors.InvalidRun(fmt.Sprintf("duplicate node %q", n.Name))
		}
		byName[n.Name] = n
	}

	rc := &Context{
		RunID:        uuid.NewString(),
		HostRunID:    hostRunID,
		Orchestrator: orchestrator,
		Bus:          bus,
		Nodes:        byName,
	}

	if err := rc.validateContext(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (c *Context) validateContext() error {
	if err := validate.Struct(c); err != nil {
		return errors.InvalidRun(err.Error())
	}

	slots := make(map[string]string, len(c.Nodes))
	for name, spec := range c.Nodes {
		for _, dep := range spec.DependsOn {
			if _, ok := c.Nodes[dep]; !ok {
				return errors.InvalidRun(fmt.Sprintf("node %q depends on unknown node %q", name, dep))
			}
		}
		if prev, taken := slots[spec.Slot]; taken {
			return errors.InvalidRun(fmt.Sprintf("nodes %q and %q share slot %q", prev, name, spec.Slot))
		}
		slots[spec.Slot] = name
	}

	if _, err := Levels(c.Nodes); err != nil {
		return err
	}
	return nil
}

// Node returns the spec for a node name.
func (c *Context) Node(name string) (NodeSpec, bool) {
	spec, ok := c.Nodes[name]
	return spec, ok
}

// NodeNames returns all node names in no particular order.
func (c *Context) NodeNames() []string {
	names := make([]string, 0, len(c.Nodes))
	for name := range c.Nodes {
		names = append(names, name)
	}
	return names
}

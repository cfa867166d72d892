package gather

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/host"
	"github.com/kbukum/convoy/logger"
	"github.com/kbukum/convoy/resolve"
	"github.com/kbukum/convoy/run"
)

// DownstreamResolver maps a trigger relationship to the downstream unit of
// work it spawned.
type DownstreamResolver interface {
	Downstream(ctx context.Context, hostRunID int64, bridge string) (resolve.Downstream, error)
}

// JobLocator selects the downstream job whose output is harvested.
type JobLocator interface {
	LatestJob(ctx context.Context, unitID, runID int64, pattern string) (host.Job, error)
}

// ArtifactDownloader fetches a job's artifact archive.
type ArtifactDownloader interface {
	DownloadArtifacts(ctx context.Context, unitID, jobID int64) ([]byte, error)
}

// Result records one filled slot for the manifest.
type Result struct {
	Node   string
	Slot   string
	Ref    string
	JobID  int64
	Status string
}

// Gatherer produces one namespaced slot per upstream node.
type Gatherer struct {
	resolver   DownstreamResolver
	locator    JobLocator
	downloader ArtifactDownloader
	log        *logger.Logger
}

// New creates a gatherer.
func New(r DownstreamResolver, l JobLocator, d ArtifactDownloader, log *logger.Logger) *Gatherer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Gatherer{resolver: r, locator: l, downloader: d, log: log.WithComponent("gather")}
}

// Gather harvests one node's artifact set into its slot under treeRoot.
//
// The artifact set is expanded into a scratch location first and only moved
// into the canonical tree after validation, so a failed gather never leaves
// a partial slot behind.
func (g *Gatherer) Gather(ctx context.Context, rc *run.Context, spec run.NodeSpec, treeRoot string) (Result, error) {
	log := g.log.WithRun(rc.RunID).WithFields(map[string]interface{}{
		logger.FieldNode: spec.Name,
		logger.FieldSlot: spec.Slot,
	})

	ds, err := g.resolver.Downstream(ctx, rc.HostRunID, spec.Bridge)
	if err != nil {
		return Result{}, err
	}

	job, err := g.locator.LatestJob(ctx, ds.UnitID, ds.RunID, spec.JobPattern)
	if err != nil {
		return Result{}, err
	}
	log.Debug("located artifact job", logger.Fields(logger.FieldJobID, job.ID))

	archive, err := g.downloader.DownloadArtifacts(ctx, ds.UnitID, job.ID)
	if err != nil {
		return Result{}, errors.TransportFailed("download artifacts", err)
	}

	// Scratch lives beside the canonical tree so the final rename stays on
	// one filesystem.
	scratch, err := os.MkdirTemp(filepath.Dir(treeRoot), "gather-scratch-*")
	if err != nil {
		return Result{}, errors.Internal(err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	if err := extractZip(archive, scratch); err != nil {
		return Result{}, errors.ContractViolation(spec.Name, "readable artifact archive").WithCause(err)
	}

	if err := validateContract(scratch, spec); err != nil {
		return Result{}, err
	}

	slotPath := filepath.Join(treeRoot, spec.Slot)
	if _, err := os.Stat(slotPath); err == nil {
		// Hard failure, never merge or overwrite: artifact sets from
		// different nodes must not silently mix.
		return Result{}, errors.SlotCollision(spec.Slot)
	}

	if err := os.Rename(scratch, slotPath); err != nil {
		return Result{}, errors.Internal(fmt.Errorf("move artifact set into slot %q: %w", spec.Slot, err))
	}

	status := job.Status
	if status == "" {
		status = "success"
	}
	log.Info("slot filled", logger.Fields(logger.FieldJobID, job.ID, "files", len(spec.Outputs)+1))

	return Result{
		Node:   spec.Name,
		Slot:   spec.Slot,
		Ref:    spec.Ref,
		JobID:  job.ID,
		Status: status,
	}, nil
}

// validateContract performs the shallow structural check: the mandatory
// metadata file must be present and parse as YAML, and every declared output
// must exist. Node logic is deliberately not re-verified here.
func validateContract(dir string, spec run.NodeSpec) error {
	metaPath := filepath.Join(dir, run.MetaFileName)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return errors.ContractViolation(spec.Name, run.MetaFileName)
	}

	var meta map[string]any
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return errors.ContractViolation(spec.Name, run.MetaFileName).WithCause(err)
	}

	for _, output := range spec.Outputs {
		if _, err := os.Stat(filepath.Join(dir, output)); err != nil {
			return errors.ContractViolation(spec.Name, output)
		}
	}
	return nil
}

package resolve

import (
	"context"

	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/host"
	"github.com/kbukum/convoy/logger"
)

// BridgeLister lists the trigger relationships belonging to a host run.
type BridgeLister interface {
	Bridges(ctx context.Context, runID int64) ([]host.Bridge, error)
}

// Downstream identifies the unit of work a trigger relationship spawned.
type Downstream struct {
	UnitID int64
	RunID  int64
}

// Resolver resolves trigger relationships against the pipeline host.
type Resolver struct {
	host BridgeLister
	log  *logger.Logger
}

// New creates a resolver.
func New(h BridgeLister, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Resolver{host: h, log: log.WithComponent("resolve")}
}

// Downstream finds the trigger relationship named bridgeName among the
// current run's bridges and extracts the downstream unit/run pair.
//
// When multiple relationships share a name, the first match returned by
// the host wins. Duplicate names usually indicate a host-side bug, so they
// are logged at warn level.
func (r *Resolver) Downstream(ctx context.Context, hostRunID int64, bridgeName string) (Downstream, error) {
	bridges, err := r.host.Bridges(ctx, hostRunID)
	if err != nil {
		return Downstream{}, errors.TransportFailed("list bridges", err)
	}

	var match *host.Bridge
	matches := 0
	for i := range bridges {
		if bridges[i].Name != bridgeName {
			continue
		}
		matches++
		if match == nil {
			match = &bridges[i]
		}
	}

	if match == nil {
		return Downstream{}, errors.ResolutionFailed(bridgeName, "no trigger relationship with that name")
	}
	if matches > 1 {
		r.log.Warn("multiple trigger relationships share a name, using first match", logger.Fields(
			logger.FieldBridge, bridgeName,
			"matches", matches,
		))
	}

	if match.DownstreamUnitID == 0 || match.DownstreamRunID == 0 {
		return Downstream{}, errors.ResolutionFailed(bridgeName, "downstream identifiers missing")
	}

	return Downstream{UnitID: match.DownstreamUnitID, RunID: match.DownstreamRunID}, nil
}

package publish

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/logger"
	"github.com/kbukum/convoy/run"
)

// PackageStore is the store-write capability. The publisher is the only
// component constructed with one.
type PackageStore interface {
	UploadPackage(ctx context.Context, storeID, pkg, version, destPath string, body []byte) error
}

// Receipt records where the bundle landed.
type Receipt struct {
	StoreID string
	Package string
	Version string
	File    string
}

// Publisher uploads bundles to the durable bus.
type Publisher struct {
	store PackageStore
	bus   run.BusTarget
	log   *logger.Logger
}

// New creates a publisher for one bus target.
func New(store PackageStore, bus run.BusTarget, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Publisher{store: store, bus: bus, log: log.WithComponent("publish")}
}

// Destination returns the package the given verdict routes to.
func (p *Publisher) Destination(accepted bool) string {
	if accepted {
		return p.bus.PrimaryPackage
	}
	return p.bus.QuarantinePackage
}

// Publish uploads the bundle at bundlePath, versioned by run id, to the
// package the verdict selects. An upload failure is terminal: a run never
// reports completion without its bundle durably stored.
func (p *Publisher) Publish(ctx context.Context, runID string, accepted bool, bundlePath string) (Receipt, error) {
	pkg := p.Destination(accepted)
	file := filepath.Base(bundlePath)
	log := p.log.WithRun(runID).WithFields(map[string]interface{}{
		logger.FieldPackage: pkg,
		logger.FieldBundle:  file,
	})

	body, err := os.ReadFile(bundlePath)
	if err != nil {
		return Receipt{}, errors.PublishFailed(pkg, err)
	}

	if err := p.store.UploadPackage(ctx, p.bus.StoreID, pkg, runID, file, body); err != nil {
		log.Error("bundle upload failed", logger.Fields(logger.FieldError, err.Error()))
		return Receipt{}, errors.PublishFailed(pkg, err)
	}

	log.Info("bundle published", logger.Fields("bytes", len(body)))
	return Receipt{
		StoreID: p.bus.StoreID,
		Package: pkg,
		Version: runID,
		File:    file,
	}, nil
}

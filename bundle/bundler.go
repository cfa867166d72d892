package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/gather"
	"github.com/kbukum/convoy/logger"
	"github.com/kbukum/convoy/run"
	"github.com/kbukum/convoy/seal"
)

// Summary is everything the bundler records that it cannot derive from the
// tree itself: the run status, the gate verdict and the chosen destination.
type Summary struct {
	// Status is the overall run status, "success" or "failed".
	Status string
	// GatePassed is the gate verdict embedded in the manifest.
	GatePassed bool
	// GateReasons explains a rejection; empty on accept.
	GateReasons []string
	// Package is the destination package the publisher will use.
	Package string
	// Results are the per-node gather results that filled the tree.
	Results []gather.Result
}

// Artifact is the bundler's output: the archive on disk plus the manifest
// that was written into it.
type Artifact struct {
	Path     string
	Manifest Manifest
}

// Bundler assembles the manifest and archive for one run.
type Bundler struct {
	sealer seal.Sealer
	log    *logger.Logger
}

// Option configures the bundler.
type Option func(*Bundler)

// WithSealer wraps the archive bytes with the given sealer. Sealing is
// friction against automatic extraction, not a security boundary.
func WithSealer(s seal.Sealer) Option {
	return func(b *Bundler) { b.sealer = s }
}

// New creates a bundler.
func New(log *logger.Logger, opts ...Option) *Bundler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	b := &Bundler{log: log.WithComponent("bundle")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bundle hashes the tree, writes the manifest at its root and archives the
// whole tree, manifest included, beside the tree root. The archive name is
// derived from the run id alone.
func (b *Bundler) Bundle(rc *run.Context, treeRoot string, sum Summary) (Artifact, error) {
	log := b.log.WithRun(rc.RunID)

	bySlot, err := hashTree(treeRoot)
	if err != nil {
		return Artifact{}, errors.Internal(err)
	}

	manifest := Manifest{
		RunID:         rc.RunID,
		Status:        sum.Status,
		GatePassed:    sum.GatePassed,
		GateReasons:   sum.GateReasons,
		HashAlgorithm: HashAlgorithm,
		CreatedAt:     time.Now().UTC(),
		Orchestrator:  OrchestratorInfo{Name: rc.Orchestrator.Name, URL: rc.Orchestrator.URL},
		Nodes:         nodeRecords(rc, sum.Results, bySlot),
		Bus:           BusInfo{StoreID: rc.Bus.StoreID, Package: sum.Package},
		Bundle:        ArchiveName(rc.RunID),
	}

	if err := writeManifest(treeRoot, manifest); err != nil {
		return Artifact{}, errors.Internal(err)
	}

	archivePath := filepath.Join(filepath.Dir(treeRoot), ArchiveName(rc.RunID))
	if err := b.writeArchive(treeRoot, archivePath); err != nil {
		return Artifact{}, errors.Internal(err)
	}

	log.Info("bundle assembled", logger.Fields(
		logger.FieldBundle, manifest.Bundle,
		"nodes", len(manifest.Nodes),
		"sealed", b.sealer != nil,
	))
	return Artifact{Path: archivePath, Manifest: manifest}, nil
}

// nodeRecords joins the gather results with the hashed files per slot. Nodes
// that never filled their slot still appear, with their failure status and
// no files, so the manifest accounts for the whole plan.
func nodeRecords(rc *run.Context, results []gather.Result, bySlot map[string][]FileRecord) map[string]NodeRecord {
	statusByNode := make(map[string]string, len(results))
	for _, r := range results {
		statusByNode[r.Node] = r.Status
	}

	records := make(map[string]NodeRecord, len(rc.Nodes))
	for name, spec := range rc.Nodes {
		status, ok := statusByNode[name]
		if !ok {
			status = "failed"
		}
		records[name] = NodeRecord{
			Ref:    spec.Ref,
			Status: status,
			Files:  bySlot[slotFor(spec)],
		}
	}
	return records
}

// writeArchive zips the tree into path. With a sealer configured the zip is
// built in memory, sealed, and the sealed bytes are written instead.
func (b *Bundler) writeArchive(treeRoot, path string) error {
	if b.sealer == nil {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := zipTree(treeRoot, f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	var buf bytes.Buffer
	if err := zipTree(treeRoot, &buf); err != nil {
		return err
	}
	sealed, err := b.sealer.Seal(buf.Bytes())
	if err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o644)
}

func zipTree(root string, out io.Writer) error {
	w := zip.NewWriter(out)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

package gather

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	convoyerrors "github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/host"
	"github.com/kbukum/convoy/resolve"
	"github.com/kbukum/convoy/run"
)

// --- fakes ---

type fakeResolver struct {
	ds  resolve.Downstream
	err error
}

func (f *fakeResolver) Downstream(ctx context.Context, hostRunID int64, bridge string) (resolve.Downstream, error) {
	return f.ds, f.err
}

type fakeLocator struct {
	job host.Job
	err error
}

func (f *fakeLocator) LatestJob(ctx context.Context, unitID, runID int64, pattern string) (host.Job, error) {
	return f.job, f.err
}

type fakeDownloader struct {
	archive []byte
	err     error
}

func (f *fakeDownloader) DownloadArtifacts(ctx context.Context, unitID, jobID int64) ([]byte, error) {
	return f.archive, f.err
}

// zipArchive builds an in-memory zip from path -> contents.
func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, contents := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(contents)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func validArchive(t *testing.T) []byte {
	return zipArchive(t, map[string]string{
		"meta.yml":   "name: builder\nstatus: success\nexit_status: 0\n",
		"report.txt": "all good\n",
	})
}

func testRunContext(t *testing.T) *run.Context {
	t.Helper()
	rc, err := run.NewContext(42,
		run.Identity{Name: "convoy"},
		run.BusTarget{StoreID: "1", PrimaryPackage: "p", QuarantinePackage: "q"},
		[]run.NodeSpec{{
			Name: "builder", Ref: "v1", Bridge: "trigger-builder",
			JobPattern: "run", Outputs: []string{"report.txt"},
		}},
	)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return rc
}

func newTreeRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "tree")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("create tree root: %v", err)
	}
	return root
}

func defaultGatherer(t *testing.T, archive []byte) *Gatherer {
	return New(
		&fakeResolver{ds: resolve.Downstream{UnitID: 7, RunID: 99}},
		&fakeLocator{job: host.Job{ID: 12, Name: "run", HasArtifacts: true, Status: "success"}},
		&fakeDownloader{archive: archive},
		nil,
	)
}

// --- tests ---

func TestGatherFillsSlot(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	g := defaultGatherer(t, validArchive(t))

	result, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if result.Node != "builder" || result.Slot != "builder" || result.JobID != 12 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Status != "success" {
		t.Errorf("expected success status, got %q", result.Status)
	}

	for _, f := range []string{"meta.yml", "report.txt"} {
		if _, err := os.Stat(filepath.Join(tree, "builder", f)); err != nil {
			t.Errorf("expected %s in slot: %v", f, err)
		}
	}
}

func TestGatherSlotCollision(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	g := defaultGatherer(t, validArchive(t))

	// Occupy the slot with sentinel contents.
	slot := filepath.Join(tree, "builder")
	if err := os.MkdirAll(slot, 0o755); err != nil {
		t.Fatalf("occupy slot: %v", err)
	}
	sentinel := filepath.Join(slot, "existing.txt")
	if err := os.WriteFile(sentinel, []byte("do not touch"), 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeSlotCollision) {
		t.Fatalf("expected SLOT_COLLISION, got %v", err)
	}

	// Idempotent-failure property: the existing slot is untouched.
	data, err := os.ReadFile(sentinel)
	if err != nil || string(data) != "do not touch" {
		t.Errorf("existing slot contents modified: %v %q", err, data)
	}
	if _, err := os.Stat(filepath.Join(slot, "meta.yml")); err == nil {
		t.Error("collision must not deposit new files into the slot")
	}
}

func TestGatherSlotCollisionRepeatable(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	g := defaultGatherer(t, validArchive(t))

	if _, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree); err != nil {
		t.Fatalf("first gather failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
		if !convoyerrors.HasCode(err, convoyerrors.ErrCodeSlotCollision) {
			t.Fatalf("expected SLOT_COLLISION on repeat %d, got %v", i, err)
		}
	}
}

func TestGatherMissingMetaFile(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	archive := zipArchive(t, map[string]string{"report.txt": "no meta"})
	g := defaultGatherer(t, archive)

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeContractViolation) {
		t.Fatalf("expected CONTRACT_VIOLATION, got %v", err)
	}
	// Nothing may reach the canonical tree on validation failure.
	if _, statErr := os.Stat(filepath.Join(tree, "builder")); statErr == nil {
		t.Error("failed gather must not create the slot")
	}
}

func TestGatherMissingDeclaredOutput(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	archive := zipArchive(t, map[string]string{"meta.yml": "status: success\n"})
	g := defaultGatherer(t, archive)

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeContractViolation) {
		t.Fatalf("expected CONTRACT_VIOLATION, got %v", err)
	}
}

func TestGatherMalformedMeta(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	archive := zipArchive(t, map[string]string{
		"meta.yml":   "{{ not yaml",
		"report.txt": "x",
	})
	g := defaultGatherer(t, archive)

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeContractViolation) {
		t.Fatalf("expected CONTRACT_VIOLATION, got %v", err)
	}
}

func TestGatherCorruptArchive(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	g := defaultGatherer(t, []byte("not a zip"))

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeContractViolation) {
		t.Fatalf("expected CONTRACT_VIOLATION, got %v", err)
	}
}

func TestGatherResolutionFailurePropagates(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	g := New(
		&fakeResolver{err: convoyerrors.ResolutionFailed("trigger-builder", "no match")},
		&fakeLocator{},
		&fakeDownloader{},
		nil,
	)

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeResolutionFailed) {
		t.Fatalf("expected RESOLUTION_FAILED, got %v", err)
	}
}

func TestGatherLocationFailurePropagates(t *testing.T) {
	rc := testRunContext(t)
	tree := newTreeRoot(t)
	g := New(
		&fakeResolver{ds: resolve.Downstream{UnitID: 7, RunID: 99}},
		&fakeLocator{err: convoyerrors.ArtifactNotFound("run", 7, 99)},
		&fakeDownloader{},
		nil,
	)

	_, err := g.Gather(context.Background(), rc, rc.Nodes["builder"], tree)
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeArtifactNotFound) {
		t.Fatalf("expected ARTIFACT_NOT_FOUND, got %v", err)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("../escape.txt")
	_, _ = f.Write([]byte("evil"))
	_ = w.Close()

	if err := extractZip(buf.Bytes(), t.TempDir()); err == nil {
		t.Fatal("expected zip-slip rejection")
	}
}

func TestExtractZipNestedDirectories(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"meta.yml":          "status: success\n",
		"logs/stdout.txt":   "hello\n",
		"logs/inner/x.json": "{}",
	})
	dest := t.TempDir()
	if err := extractZip(archive, dest); err != nil {
		t.Fatalf("extractZip failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "logs", "inner", "x.json")); err != nil {
		t.Errorf("expected nested file: %v", err)
	}
}

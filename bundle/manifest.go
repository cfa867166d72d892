package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/convoy/run"
)

// ManifestName is the manifest file written at the tree root and included
// in the archive.
const ManifestName = "manifest.json"

// HashAlgorithm names the content hash recorded per file. It is a manifest
// field rather than an implicit convention so readers can verify offline.
const HashAlgorithm = "sha-256"

// FileRecord is one hashed file of a node's artifact set.
type FileRecord struct {
	// File is the path relative to the tree root, slash-separated.
	File string `json:"file"`
	// Hash is the hex digest of the file contents.
	Hash string `json:"hash"`
}

// NodeRecord describes one node's contribution to the bundle.
type NodeRecord struct {
	Ref    string       `json:"ref"`
	Status string       `json:"status"`
	Files  []FileRecord `json:"files"`
}

// OrchestratorInfo identifies the engine that produced the bundle.
type OrchestratorInfo struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// BusInfo records where the bundle was destined, so the manifest stays
// self-explanatory after the bundle has been moved around.
type BusInfo struct {
	StoreID string `json:"store_id"`
	Package string `json:"package"`
}

// Manifest is the machine-readable record at the root of every bundle.
// It must make sense to a reader with no access to the pipeline host.
type Manifest struct {
	RunID         string                `json:"run_id"`
	Status        string                `json:"status"`
	GatePassed    bool                  `json:"gate_passed"`
	GateReasons   []string              `json:"gate_reasons,omitempty"`
	HashAlgorithm string                `json:"hash_algorithm"`
	CreatedAt     time.Time             `json:"created_at"`
	Orchestrator  OrchestratorInfo      `json:"orchestrator"`
	Nodes         map[string]NodeRecord `json:"nodes"`
	Bus           BusInfo               `json:"bus"`
	Bundle        string                `json:"bundle"`
}

// ArchiveName derives the deterministic bundle file name from the run id.
func ArchiveName(runID string) string {
	return fmt.Sprintf("run-%s.zip", runID)
}

// hashTree walks every regular file under root and returns its records
// grouped by top-level slot. The manifest itself is excluded. Records are
// sorted by path so the manifest is byte-stable for a given tree.
func hashTree(root string) (map[string][]FileRecord, error) {
	bySlot := make(map[string][]FileRecord)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestName {
			return nil
		}

		sum, err := hashFile(path)
		if err != nil {
			return err
		}

		slot, _, _ := strings.Cut(rel, "/")
		bySlot[slot] = append(bySlot[slot], FileRecord{File: rel, Hash: sum})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, records := range bySlot {
		sort.Slice(records, func(i, j int) bool { return records[i].File < records[j].File })
	}
	return bySlot, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeManifest serializes the manifest to the tree root.
func writeManifest(root string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, ManifestName), append(data, '\n'), 0o644)
}

// ReadManifest loads a manifest from a tree root or an extracted bundle.
func ReadManifest(root string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return m, nil
}

// slotFor returns the slot a node writes to, defaulting to the node name
// the same way run.NewContext does.
func slotFor(spec run.NodeSpec) string {
	if spec.Slot != "" {
		return spec.Slot
	}
	return spec.Name
}

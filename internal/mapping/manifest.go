package mapping

import (
	"fmt"
	"os"
	"path"
	"time"
)

// ManifestFile is one entry of the dataset manifest, produced by the export
// tooling alongside the CSVs. Consumed read-only.
type ManifestFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Rows   int64  `json:"rows"`
	Format string `json:"format,omitempty"`
}

// Manifest describes one published dataset version.
type Manifest struct {
	Dataset     string         `json:"dataset"`
	Version     string         `json:"version"`
	GeneratedAt time.Time      `json:"generated_at"`
	Files       []ManifestFile `json:"files"`
}

// LoadManifest reads and decodes a manifest document from disk.
func LoadManifest(p string) (*Manifest, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest document: %w", err)
	}
	return &m, nil
}

// ApplyManifest annotates the mapping's sources with the expected checksum
// and row count from the manifest, matched on the source path's basename.
// Sources absent from the manifest are left unannotated; preflight then has
// nothing to verify them against.
func (s *Spec) ApplyManifest(m *Manifest) {
	byName := make(map[string]ManifestFile, len(m.Files))
	for _, f := range m.Files {
		byName[f.Name] = f
	}
	for i := range s.Sources {
		base := path.Base(s.Sources[i].Path)
		if f, ok := byName[base]; ok {
			s.Sources[i].Checksum = f.SHA256
			rows := f.Rows
			s.Sources[i].Rows = &rows
		}
	}
}

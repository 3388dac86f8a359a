// Package archive bundles the output of an import run (the world store,
// the remap ledger and the JSON report) into one checksummed .tar.gz.
package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Archive entry names.
const (
	EntryStore    = "data/world.db"
	EntryLedger   = "data/remap.sqlite"
	EntryReport   = "report.json"
	EntryManifest = "manifest.json"
)

// Manifest describes the contents of an archive.
type Manifest struct {
	Version   int                  `json:"version"`
	Tool      string               `json:"tool"`
	Timestamp string               `json:"timestamp"`
	Source    string               `json:"source"`
	Run       string               `json:"run,omitempty"`
	Objects   int                  `json:"objects"`
	Accounts  int                  `json:"accounts"`
	Files     map[string]FileEntry `json:"files"`
}

// FileEntry describes a single file within the archive.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Type   string `json:"type"` // "store", "ledger", "report"
}

// Params holds all inputs needed to create an archive.
type Params struct {
	StoreSnapshot    func(destPath string) error // Writes a consistent copy of the store (nil = skip)
	LedgerPath       string                      // SQLite remap ledger (empty = skip)
	LedgerCheckpoint func() error                // Folds the WAL before the copy (nil = skip)
	ReportPath       string                      // JSON import report (empty = skip)
	Dir              string                      // Output directory
	Source           string                      // Dump the run imported
	Run              string                      // Ledger run id
	Objects          int
	Accounts         int
}

var now = time.Now

// Create writes a new archive into p.Dir and returns its path.
func Create(p Params) (string, error) {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return "", fmt.Errorf("archive: create dir %s: %w", p.Dir, err)
	}
	stamp := now().UTC()
	archivePath := filepath.Join(p.Dir, fmt.Sprintf("import-%s.tar.gz", stamp.Format("20060102-150405")))

	tmpDir, err := os.MkdirTemp("", "pennport-archive-*")
	if err != nil {
		return "", fmt.Errorf("archive: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	type staged struct {
		path, name, typ string
	}
	var files []staged

	if p.StoreSnapshot != nil {
		dest := filepath.Join(tmpDir, "world.db")
		if err := p.StoreSnapshot(dest); err != nil {
			return "", fmt.Errorf("archive: store snapshot: %w", err)
		}
		files = append(files, staged{dest, EntryStore, "store"})
	}
	if p.LedgerPath != "" {
		if p.LedgerCheckpoint != nil {
			if err := p.LedgerCheckpoint(); err != nil {
				return "", fmt.Errorf("archive: ledger checkpoint: %w", err)
			}
		}
		files = append(files, staged{p.LedgerPath, EntryLedger, "ledger"})
	}
	if p.ReportPath != "" {
		files = append(files, staged{p.ReportPath, EntryReport, "report"})
	}

	manifest := Manifest{
		Version:   1,
		Tool:      "pennport",
		Timestamp: stamp.Format(time.RFC3339),
		Source:    p.Source,
		Run:       p.Run,
		Objects:   p.Objects,
		Accounts:  p.Accounts,
		Files:     make(map[string]FileEntry),
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("archive: create %s: %w", archivePath, err)
	}
	defer out.Close()
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	for _, f := range files {
		entry, err := addFileToTar(tw, f.path, f.name)
		if err != nil {
			return "", err
		}
		entry.Type = f.typ
		manifest.Files[f.name] = entry
	}

	// The manifest goes last so its checksums cover everything before it.
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: marshal manifest: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     EntryManifest,
		Size:     int64(len(data)),
		Mode:     0644,
		ModTime:  stamp,
	}); err != nil {
		return "", fmt.Errorf("archive: write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return "", fmt.Errorf("archive: write manifest: %w", err)
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("archive: close tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("archive: close gzip: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("archive: close %s: %w", archivePath, err)
	}
	return archivePath, nil
}

// addFileToTar adds a single file to the tar archive with the given archive name,
// computing its SHA-256 while writing.
func addFileToTar(tw *tar.Writer, srcPath, archName string) (FileEntry, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: open %s: %w", srcPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: stat %s: %w", srcPath, err)
	}

	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     archName,
		Size:     info.Size(),
		Mode:     0644,
		ModTime:  info.ModTime(),
	}); err != nil {
		return FileEntry{}, fmt.Errorf("archive: header %s: %w", archName, err)
	}

	h := sha256.New()
	written, err := io.Copy(tw, io.TeeReader(f, h))
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: write %s: %w", archName, err)
	}

	return FileEntry{
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   written,
	}, nil
}

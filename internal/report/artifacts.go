package report

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

const (
	SnapshotFile = "performance_snapshot.png"
	YearlyFile   = "returns.png"
	ReportFile   = "performance_report.html"
)

// Request scopes the artifacts of one pipeline call.
type Request struct {
	ID  string
	Dir string
}

// ArtifactSink materializes rendered artifacts. A deployment uses exactly one
// sink for every request.
type ArtifactSink interface {
	Begin(id string) (*Request, error)
	Put(req *Request, name, mimeType string, data []byte) (models.Artifact, error)
	// Discard drops everything written for req.
	Discard(req *Request) error
}

// NewSink returns the sink matching cfg.ArtifactChannel.
func NewSink(cfg *config.Config) (ArtifactSink, error) {
	switch cfg.ArtifactChannel {
	case config.ArtifactChannelFile, "":
		return NewFileSink(cfg.ResultsDir), nil
	case config.ArtifactChannelMemory:
		return MemorySink{}, nil
	}
	return nil, fmt.Errorf("unknown artifact channel %q", cfg.ArtifactChannel)
}

// FileSink writes each request under <root>/<request id>/.
type FileSink struct {
	root string
}

func NewFileSink(root string) *FileSink {
	return &FileSink{root: root}
}

func (s *FileSink) Begin(id string) (*Request, error) {
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create request dir: %w", err)
	}
	return &Request{ID: id, Dir: dir}, nil
}

func (s *FileSink) Put(req *Request, name, _ string, data []byte) (models.Artifact, error) {
	path := filepath.Join(req.Dir, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return models.Artifact{}, err
	}
	return models.Artifact{Name: name, Path: path}, nil
}

func (s *FileSink) Discard(req *Request) error {
	if req == nil || req.Dir == "" {
		return nil
	}
	return os.RemoveAll(req.Dir)
}

// WriteFileAtomic writes data next to path and renames it into place, so a
// reader sees either the previous file or the complete new one.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// MemorySink keeps artifacts in memory as data URIs.
type MemorySink struct{}

func (MemorySink) Begin(id string) (*Request, error) {
	return &Request{ID: id}, nil
}

func (MemorySink) Put(_ *Request, name, mimeType string, data []byte) (models.Artifact, error) {
	return models.Artifact{Name: name, DataURI: DataURI(mimeType, data)}, nil
}

func (MemorySink) Discard(*Request) error { return nil }

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Location returns the path or data URI of an artifact, whichever is set.
func Location(a models.Artifact) string {
	if a.Path != "" {
		return a.Path
	}
	return a.DataURI
}

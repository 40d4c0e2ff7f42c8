package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store persists uploaded documents and converted Markdown artifacts
// on the local filesystem.
type Store struct {
	uploadDir string
	outputDir string
}

func New(uploadDir, outputDir string) *Store {
	return &Store{uploadDir: uploadDir, outputDir: outputDir}
}

// EnsureDirs creates the upload and output directories if missing.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SaveUpload streams an uploaded document to disk under the job ID and
// returns the stored path.
func (s *Store) SaveUpload(jobID string, src io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, jobID+".pdf")
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// WriteArtifact persists the final Markdown content for a job and
// returns the artifact reference (the output filename).
func (s *Store) WriteArtifact(jobID string, content string) (string, error) {
	ref := jobID + ".md"
	path := filepath.Join(s.outputDir, ref)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return ref, nil
}

// ReadArtifact returns the bytes of a previously written artifact.
func (s *Store) ReadArtifact(ref string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.outputDir, ref))
}

// ArtifactPath returns the on-disk path of an artifact reference.
func (s *Store) ArtifactPath(ref string) string {
	return filepath.Join(s.outputDir, ref)
}

// Package storage persists generated artifacts (images, vector
// graphics) on the local filesystem and reports their content hashes.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrEmptyArtifact is returned when asked to store zero bytes.
var ErrEmptyArtifact = errors.New("artifact data cannot be empty")

// SavedArtifact describes a stored artifact: its absolute path and the
// SHA-256 of its contents.
type SavedArtifact struct {
	Path   string
	SHA256 string
}

// ArtifactStore writes generated artifacts under a configured assets
// directory. Images are grouped by batch so one import's output stays
// together on disk.
type ArtifactStore struct {
	assetsDir string
}

// NewArtifactStore creates an artifact store rooted at assetsDir.
func NewArtifactStore(assetsDir string) (*ArtifactStore, error) {
	if assetsDir == "" {
		return nil, errors.New("assets directory cannot be empty")
	}
	return &ArtifactStore{assetsDir: assetsDir}, nil
}

// SaveImage writes the image bytes for an item and returns the file
// path and content hash. Each attempt gets a unique filename so that
// retries never overwrite earlier results.
func (s *ArtifactStore) SaveImage(data []byte, itemID, batchID uuid.UUID) (*SavedArtifact, error) {
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}

	sum := sha256.Sum256(data)

	dir := filepath.Join(s.assetsDir, "images", batchID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", itemID, uuid.New()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	return &SavedArtifact{
		Path:   path,
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// ReadImage loads a previously saved artifact. Edit jobs embed the
// selected artifact as a visual reference for the generation call.
func (s *ArtifactStore) ReadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}
	return data, nil
}

// SaveSVG writes vector-graphic text for an item and returns the file
// path. There is one SVG per item; a re-trace replaces it.
func (s *ArtifactStore) SaveSVG(content string, itemID uuid.UUID) (string, error) {
	if content == "" {
		return "", ErrEmptyArtifact
	}

	dir := filepath.Join(s.assetsDir, "svg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create svg directory: %w", err)
	}

	path := filepath.Join(dir, itemID.String()+".svg")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write svg: %w", err)
	}

	return path, nil
}

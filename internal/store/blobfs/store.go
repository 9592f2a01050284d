package blobfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
	"go.uber.org/zap"
)

var (
	errMissingRoot   = errors.New("blobfs: root directory is required")
	errMissingSigner = errors.New("blobfs: url signer is required")
	ErrInvalidBlobID = errors.New("blobfs: invalid blob id")
)

type Config struct {
	Root   string
	Signer *URLSigner
	Logger *zap.Logger
}

// Store keeps each blob in its own file under Root, sharded by the first two characters of the id.
type Store struct {
	root   string
	signer *URLSigner
	logger *zap.Logger
}

func New(cfg Config) (*Store, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errMissingRoot
	}
	if cfg.Signer == nil {
		return nil, errMissingSigner
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobfs: create root: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, signer: cfg.Signer, logger: logger}, nil
}

var _ store.BlobStore = (*Store)(nil)

func (s *Store) path(id string) (string, error) {
	if len(id) < 3 || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlobID, id)
	}
	return filepath.Join(s.root, id[:2], id), nil
}

func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blobfs: read %s: %w", id, store.ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("blobfs: read %s: %w", id, err)
	}
	return body, nil
}

func (s *Store) URL(_ context.Context, id string) (string, error) {
	if _, err := s.path(id); err != nil {
		return "", err
	}
	return s.signer.SignedURL(id)
}

// Put writes through a temp file and rename so readers never observe a partial body.
func (s *Store) Put(_ context.Context, id string, body []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blobfs: write %s: %w", id, err)
	}
	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("blobfs: write %s: %w", id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blobfs: write %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blobfs: write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blobfs: write %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blobfs: write %s: %w", id, err)
	}
	s.logger.Debug("blob written", zap.String("blob_id", id), zap.Int("bytes", len(body)))
	return nil
}

// Delete removes the blob; deleting a missing blob is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blobfs: delete %s: %w", id, err)
	}
	return nil
}

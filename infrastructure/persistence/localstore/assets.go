package localstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joeleaver/pimble/domain/core/valueobjects"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

// PutAsset stores a binary under its content hash. Identical bytes land
// on the same file, so re-storing is a cheap no-op.
func (s *LocalStore) PutAsset(ctx context.Context, data []byte, ext string) (valueobjects.ContentHash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return valueobjects.ContentHash{}, pkgerrors.NewStoreClosingError(s.manifest.ID.String())
	}
	hash := valueobjects.NewContentHash(data, ext)
	path := s.assetPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	} else if !os.IsNotExist(err) {
		return valueobjects.ContentHash{}, pkgerrors.NewIOError("stat asset", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return valueobjects.ContentHash{}, pkgerrors.NewIOError("write asset", err)
	}
	s.logger.Debug("Stored asset",
		zap.String("storeID", s.manifest.ID.String()),
		zap.String("asset", hash.Filename()),
		zap.Int("bytes", len(data)),
	)
	return hash, nil
}

// OpenAsset reads a stored asset by hash.
func (s *LocalStore) OpenAsset(ctx context.Context, hash valueobjects.ContentHash) ([]byte, error) {
	s.mu.RLock()
	path := s.assetPath(hash)
	s.mu.RUnlock()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NewNotFoundError("asset " + hash.Filename())
		}
		return nil, pkgerrors.NewIOError("read asset", err)
	}
	return data, nil
}

// SweepAssets removes every stored asset whose digest is not in the live
// set and reports how many were collected.
func (s *LocalStore) SweepAssets(ctx context.Context, live []valueobjects.ContentHash) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, pkgerrors.NewStoreClosingError(s.manifest.ID.String())
	}
	keep := make(map[string]struct{}, len(live))
	for _, hash := range live {
		keep[hash.Digest()] = struct{}{}
	}

	assetsDir := filepath.Join(s.baseDir, assetsDirName)
	entries, err := os.ReadDir(assetsDir)
	if err != nil {
		return 0, pkgerrors.NewIOError("list assets", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || isTempFile(entry.Name()) {
			continue
		}
		hash, err := valueobjects.NewContentHashFromFilename(entry.Name())
		if err != nil {
			s.logger.Warn("Skipping unrecognized asset file", zap.String("name", entry.Name()))
			continue
		}
		if _, ok := keep[hash.Digest()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(assetsDir, entry.Name())); err != nil {
			return removed, pkgerrors.NewIOError("remove asset", err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Swept unreferenced assets",
			zap.String("storeID", s.manifest.ID.String()),
			zap.Int("removed", removed),
		)
	}
	return removed, nil
}

func (s *LocalStore) assetPath(hash valueobjects.ContentHash) string {
	return filepath.Join(s.baseDir, assetsDirName, hash.Filename())
}

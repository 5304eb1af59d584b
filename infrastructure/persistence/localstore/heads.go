package localstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joeleaver/pimble/domain/crdt"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

// Heads returns a copy of the persisted per-node merge markers, keyed by
// node id.
func (s *LocalStore) Heads(ctx context.Context) (map[string]crdt.VersionVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]crdt.VersionVector, len(s.heads))
	for id, vv := range s.heads {
		out[id] = vv.Clone()
	}
	return out, nil
}

// SaveHeads replaces the merge markers. The file is written on the next
// flush; markers are advisory and safe to lose to a crash.
func (s *LocalStore) SaveHeads(ctx context.Context, heads map[string]crdt.VersionVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkgerrors.NewStoreClosingError(s.manifest.ID.String())
	}
	replaced := make(map[string]crdt.VersionVector, len(heads))
	for id, vv := range heads {
		replaced[id] = vv.Clone()
	}
	s.heads = replaced
	s.headsDirty = true
	return nil
}

func headsPath(dir string) string {
	return filepath.Join(dir, syncDirName, headsFileName)
}

func readHeads(dir string, logger *zap.Logger) (map[string]crdt.VersionVector, error) {
	data, err := os.ReadFile(headsPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]crdt.VersionVector), nil
		}
		return nil, pkgerrors.NewIOError("read sync markers", err)
	}
	var heads map[string]crdt.VersionVector
	if err := json.Unmarshal(data, &heads); err != nil {
		// Markers only gate incremental sync; a damaged file costs a full
		// resync, not the store.
		logger.Warn("Discarding undecodable sync markers", zap.Error(err))
		return make(map[string]crdt.VersionVector), nil
	}
	if heads == nil {
		heads = make(map[string]crdt.VersionVector)
	}
	return heads, nil
}

func writeHeads(dir string, heads map[string]crdt.VersionVector) error {
	data, err := json.MarshalIndent(heads, "", "  ")
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode sync markers").WithCause(err)
	}
	if err := writeFileAtomic(headsPath(dir), data); err != nil {
		return pkgerrors.NewIOError("write sync markers", err)
	}
	return nil
}

// Package localstore persists one store as a plain directory: a manifest,
// a pair of files per node, content-addressed assets and sync markers.
// Writes are write-through and atomic; open is tolerant of the damage a
// crash can leave behind.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

const (
	manifestFileName = "manifest.json"
	nodesDirName     = "nodes"
	assetsDirName    = "assets"
	indexDirName     = "index"
	syncDirName      = "sync"
	headsFileName    = "heads.json"
	metaExt          = ".json"
	contentExt       = ".content"
)

// LocalStore implements ports.Persistence on a local directory.
type LocalStore struct {
	baseDir string
	logger  *zap.Logger

	mu         sync.RWMutex
	manifest   entities.StoreManifest
	records    map[string]*nodeRecord
	heads      map[string]crdt.VersionVector
	headsDirty bool
	mutated    bool
	closed     bool
}

// Factory creates and opens local stores.
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a Factory for local directory stores.
func NewFactory(logger *zap.Logger) ports.PersistenceFactory {
	return &Factory{logger: logger}
}

// Create initializes a store directory. Anything already living at the
// location other than leftovers of an interrupted creation refuses the
// create.
func (f *Factory) Create(ctx context.Context, location entities.StoreLocation, name string) (ports.Persistence, error) {
	dir, err := localDir(location)
	if err != nil {
		return nil, err
	}
	if blocker, blocked := creationBlocker(dir); blocked {
		return nil, pkgerrors.NewAlreadyExistsError(dir).WithDetails(map[string]interface{}{
			"existing_entry": blocker,
		})
	}
	for _, sub := range []string{nodesDirName, assetsDirName, indexDirName, syncDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, pkgerrors.NewIOError("create store directory", err)
		}
	}
	if err := acquireLock(dir, f.logger); err != nil {
		return nil, err
	}

	root := entities.NewFolderNode(name)
	manifest := entities.NewStoreManifest(name, root.ID())

	s := &LocalStore{
		baseDir:  dir,
		logger:   f.logger,
		manifest: manifest,
		records:  make(map[string]*nodeRecord),
		heads:    make(map[string]crdt.VersionVector),
	}
	if err := s.writeManifestLocked(); err != nil {
		releaseLock(dir, f.logger)
		return nil, err
	}
	if err := s.writeNodeLocked(root); err != nil {
		releaseLock(dir, f.logger)
		return nil, err
	}

	f.logger.Info("Created store",
		zap.String("storeID", manifest.ID.String()),
		zap.String("name", name),
		zap.String("path", dir),
	)
	return s, nil
}

// Open attaches to an existing store directory, validating the manifest,
// acquiring the lock and loading every node. Damage found while loading
// is repaired in memory or surfaced per node, never by failing the open.
func (f *Factory) Open(ctx context.Context, location entities.StoreLocation) (ports.Persistence, error) {
	dir, err := localDir(location)
	if err != nil {
		return nil, err
	}
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if manifest.Version > entities.CurrentManifestVersion {
		return nil, pkgerrors.NewVersionMismatchError(manifest.Version, entities.CurrentManifestVersion)
	}
	if manifest.SchemaVersion > entities.CurrentSchemaVersion {
		return nil, pkgerrors.NewVersionMismatchError(manifest.SchemaVersion, entities.CurrentSchemaVersion)
	}
	if err := acquireLock(dir, f.logger); err != nil {
		return nil, err
	}
	for _, sub := range []string{nodesDirName, assetsDirName, indexDirName, syncDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			releaseLock(dir, f.logger)
			return nil, pkgerrors.NewIOError("restore store directory", err)
		}
	}

	s := &LocalStore{
		baseDir:  dir,
		logger:   f.logger,
		manifest: manifest,
		records:  make(map[string]*nodeRecord),
	}
	if err := s.loadNodes(); err != nil {
		releaseLock(dir, f.logger)
		return nil, err
	}
	s.repairTree()
	s.heads, err = readHeads(dir, f.logger)
	if err != nil {
		releaseLock(dir, f.logger)
		return nil, err
	}

	f.logger.Info("Opened store",
		zap.String("storeID", manifest.ID.String()),
		zap.String("name", manifest.Name),
		zap.String("path", dir),
		zap.Int("nodes", len(s.records)),
		zap.Int("corrupted", len(s.CorruptedNodes())),
	)
	return s, nil
}

// Manifest returns the store's identity record.
func (s *LocalStore) Manifest() entities.StoreManifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// Location returns the store's directory location.
func (s *LocalStore) Location() entities.StoreLocation {
	return entities.NewLocalLocation(s.baseDir)
}

// ReadNode loads one node from the in-memory mirror.
func (s *LocalStore) ReadNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}
	node, err := nodeFromRecord(rec)
	if err != nil {
		return nil, pkgerrors.NewDecodeError("node "+id.String(), err)
	}
	return node, nil
}

// WriteNode persists one node: content bytes first, metadata second, both
// atomically. The write is durable before this returns.
func (s *LocalStore) WriteNode(ctx context.Context, node *entities.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkgerrors.NewStoreClosingError(s.manifest.ID.String())
	}
	return s.writeNodeLocked(node)
}

func (s *LocalStore) writeNodeLocked(node *entities.Node) error {
	item := itemFromNode(node)
	content := node.Content()

	contentPath := s.contentPath(item.ID)
	if item.HasContent {
		if err := writeFileAtomic(contentPath, content); err != nil {
			return pkgerrors.NewIOError("write node content", err)
		}
	} else {
		if err := removeIfExists(contentPath); err != nil {
			return pkgerrors.NewIOError("remove node content", err)
		}
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode node metadata").WithCause(err)
	}
	if err := writeFileAtomic(s.metaPath(item.ID), data); err != nil {
		return pkgerrors.NewIOError("write node metadata", err)
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	s.records[item.ID] = &nodeRecord{item: item, content: stored}
	s.mutated = true
	return nil
}

// RefreshNode re-reads one node's file pair from disk, replacing the
// in-memory mirror. Files edited behind the process become visible here;
// files that vanished drop the node.
func (s *LocalStore) RefreshNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, pkgerrors.NewStoreClosingError(s.manifest.ID.String())
	}

	key := id.String()
	data, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			delete(s.records, key)
			return nil, pkgerrors.NewNotFoundError("node " + key)
		}
		return nil, pkgerrors.NewIOError("read node metadata", err)
	}
	item, err := decodeNodeItem(data)
	if err != nil {
		return nil, pkgerrors.NewDecodeError("node "+key, err)
	}
	rec := &nodeRecord{item: item}
	if item.HasContent {
		content, err := os.ReadFile(s.contentPath(key))
		switch {
		case err != nil:
			s.logger.Warn("Node content unreadable on refresh", zap.String("nodeID", key), zap.Error(err))
			rec.corrupted = true
		default:
			rec.content = content
			if _, loadErr := crdt.Load(content); loadErr != nil {
				s.logger.Warn("Node content undecodable on refresh", zap.String("nodeID", key), zap.Error(loadErr))
				rec.corrupted = true
			}
		}
	}
	s.records[key] = rec
	node, err := nodeFromRecord(rec)
	if err != nil {
		return nil, pkgerrors.NewDecodeError("node "+key, err)
	}
	return node, nil
}

// DeleteNode removes a node and optionally its subtree. The parent's
// child list is updated and persisted first, then metadata files go
// before content files so an interruption leaves only inert remnants.
func (s *LocalStore) DeleteNode(ctx context.Context, id valueobjects.NodeID, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkgerrors.NewStoreClosingError(s.manifest.ID.String())
	}

	key := id.String()
	rec, ok := s.records[key]
	if !ok {
		return pkgerrors.NewNotFoundError("node " + key)
	}
	if id.Equals(s.manifest.RootNodeID) {
		return pkgerrors.NewStructuralViolationError("the store root cannot be deleted").
			WithCode(pkgerrors.CodeRootDelete)
	}
	if len(rec.item.Children) > 0 && !recursive {
		return pkgerrors.NewHasChildrenError(key, len(rec.item.Children))
	}

	if parent, ok := s.records[rec.item.ParentID]; ok {
		trimmed := parent.item.Children[:0:0]
		for _, child := range parent.item.Children {
			if child != key {
				trimmed = append(trimmed, child)
			}
		}
		if len(trimmed) != len(parent.item.Children) {
			parent.item.Children = trimmed
			parent.item.ModifiedAt = time.Now().UTC()
			if err := s.persistRecordLocked(parent); err != nil {
				return err
			}
		}
	}

	for _, victim := range s.subtreeLocked(key) {
		if err := removeIfExists(s.metaPath(victim)); err != nil {
			return pkgerrors.NewIOError("remove node metadata", err)
		}
		if err := removeIfExists(s.contentPath(victim)); err != nil {
			return pkgerrors.NewIOError("remove node content", err)
		}
		delete(s.records, victim)
		delete(s.heads, victim)
	}
	s.headsDirty = true
	s.mutated = true
	return nil
}

// subtreeLocked returns id and every descendant, children before parents.
func (s *LocalStore) subtreeLocked(id string) []string {
	var order []string
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, cur)
		if rec, ok := s.records[cur]; ok {
			stack = append(stack, rec.item.Children...)
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// ListChildren returns a node's ordered child ids.
func (s *LocalStore) ListChildren(ctx context.Context, id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}
	out := make([]valueobjects.NodeID, 0, len(rec.item.Children))
	for _, raw := range rec.item.Children {
		childID, err := valueobjects.NewNodeIDFromString(raw)
		if err != nil {
			return nil, pkgerrors.NewDecodeError("child list of node "+id.String(), err)
		}
		out = append(out, childID)
	}
	return out, nil
}

// ListNodeIDs returns every node id, in stable order.
func (s *LocalStore) ListNodeIDs(ctx context.Context) ([]valueobjects.NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]valueobjects.NodeID, 0, len(keys))
	for _, key := range keys {
		id, err := valueobjects.NewNodeIDFromString(key)
		if err != nil {
			return nil, pkgerrors.NewDecodeError("node id "+key, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Snapshot materializes the whole tree.
func (s *LocalStore) Snapshot(ctx context.Context) (map[valueobjects.NodeID]*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[valueobjects.NodeID]*entities.Node, len(s.records))
	for key, rec := range s.records {
		node, err := nodeFromRecord(rec)
		if err != nil {
			return nil, pkgerrors.NewDecodeError("node "+key, err)
		}
		out[node.ID()] = node
	}
	return out, nil
}

// CorruptedNodes lists ids whose content failed to decode.
func (s *LocalStore) CorruptedNodes() []valueobjects.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key, rec := range s.records {
		if rec.corrupted {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]valueobjects.NodeID, 0, len(keys))
	for _, key := range keys {
		if id, err := valueobjects.NewNodeIDFromString(key); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// Flush persists buffered auxiliary state: sync markers and the manifest
// modification stamp. Node writes never wait for a flush.
func (s *LocalStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *LocalStore) flushLocked() error {
	if s.headsDirty {
		if err := writeHeads(s.baseDir, s.heads); err != nil {
			return err
		}
		s.headsDirty = false
	}
	if s.mutated {
		s.manifest.ModifiedAt = time.Now().UTC()
		if err := s.writeManifestLocked(); err != nil {
			return err
		}
		s.mutated = false
	}
	return nil
}

// Close flushes and releases the store lock. The instance is unusable
// afterwards.
func (s *LocalStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	releaseLock(s.baseDir, s.logger)
	s.closed = true
	s.logger.Info("Closed store",
		zap.String("storeID", s.manifest.ID.String()),
		zap.String("path", s.baseDir),
	)
	return nil
}

// Destroy closes the store and removes its directory.
func (s *LocalStore) Destroy(ctx context.Context) error {
	if err := s.Close(ctx); err != nil {
		return err
	}
	if err := os.RemoveAll(s.baseDir); err != nil {
		return pkgerrors.NewIOError("remove store directory", err)
	}
	s.logger.Info("Destroyed store",
		zap.String("storeID", s.manifest.ID.String()),
		zap.String("path", s.baseDir),
	)
	return nil
}

// loadNodes reads every node file pair into memory, flagging undecodable
// content and adopting valid content that metadata does not claim yet.
func (s *LocalStore) loadNodes() error {
	nodesDir := filepath.Join(s.baseDir, nodesDirName)
	entries, err := os.ReadDir(nodesDir)
	if err != nil {
		return pkgerrors.NewIOError("list node files", err)
	}

	contentFiles := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isTempFile(name) {
			stray := filepath.Join(nodesDir, name)
			if err := os.Remove(stray); err == nil {
				s.logger.Debug("Removed interrupted write remnant", zap.String("path", stray))
			}
			continue
		}
		if strings.HasSuffix(name, contentExt) {
			contentFiles[strings.TrimSuffix(name, contentExt)] = struct{}{}
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || isTempFile(entry.Name()) || !strings.HasSuffix(entry.Name(), metaExt) {
			continue
		}
		path := filepath.Join(nodesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return pkgerrors.NewIOError("read node metadata", err)
		}
		item, err := decodeNodeItem(data)
		if err != nil {
			s.logger.Error("Skipping undecodable node metadata",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		rec := &nodeRecord{item: item}
		s.attachContent(rec, contentFiles)
		s.records[item.ID] = rec
	}

	for id := range contentFiles {
		if _, ok := s.records[id]; !ok {
			stray := filepath.Join(nodesDir, id+contentExt)
			s.logger.Warn("Removing content file with no node", zap.String("path", stray))
			if err := os.Remove(stray); err != nil && !os.IsNotExist(err) {
				return pkgerrors.NewIOError("remove stray content file", err)
			}
		}
	}
	return nil
}

// attachContent reads and validates one node's content bytes, marking the
// record corrupted when the metadata promises content the file cannot
// deliver.
func (s *LocalStore) attachContent(rec *nodeRecord, contentFiles map[string]struct{}) {
	id := rec.item.ID
	_, onDisk := contentFiles[id]
	delete(contentFiles, id)

	if !rec.item.HasContent {
		if !onDisk {
			return
		}
		// Metadata lost a race with a crash; keep the content if it decodes.
		data, err := os.ReadFile(s.contentPath(id))
		if err == nil && len(data) > 0 {
			if _, loadErr := crdt.Load(data); loadErr == nil {
				s.logger.Warn("Adopting content unreferenced by metadata", zap.String("nodeID", id))
				rec.item.HasContent = true
				rec.content = data
				return
			}
		}
		s.logger.Warn("Ignoring undecodable unreferenced content", zap.String("nodeID", id))
		return
	}

	if !onDisk {
		s.logger.Warn("Node content file missing", zap.String("nodeID", id))
		rec.corrupted = true
		return
	}
	data, err := os.ReadFile(s.contentPath(id))
	if err != nil {
		s.logger.Warn("Node content unreadable", zap.String("nodeID", id), zap.Error(err))
		rec.corrupted = true
		return
	}
	rec.content = data
	if _, err := crdt.Load(data); err != nil {
		s.logger.Warn("Node content undecodable",
			zap.String("nodeID", id),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		rec.corrupted = true
	}
}

// repairTree restores structural invariants in memory after a crash:
// the root exists, parent pointers are authoritative, child lists match
// them, and every node reaches the root. Files are only rewritten when
// the root itself must be recreated.
func (s *LocalStore) repairTree() {
	rootID := s.manifest.RootNodeID.String()
	if _, ok := s.records[rootID]; !ok {
		s.logger.Warn("Store root missing, recreating", zap.String("rootID", rootID))
		now := time.Now().UTC()
		rec := &nodeRecord{item: nodeItem{
			ID:         rootID,
			Type:       entities.NodeTypeFolder,
			Title:      s.manifest.Name,
			CreatedAt:  now,
			ModifiedAt: now,
			Children:   []string{},
		}}
		s.records[rootID] = rec
		if err := s.persistRecordLocked(rec); err != nil {
			s.logger.Error("Failed to persist recreated root", zap.Error(err))
		}
	}

	// Parent pointers win. Re-root anything orphaned or cyclic.
	for id, rec := range s.records {
		if id == rootID {
			rec.item.ParentID = ""
			continue
		}
		if rec.item.ParentID == "" {
			s.logger.Warn("Node without parent, re-rooting", zap.String("nodeID", id))
			rec.item.ParentID = rootID
			continue
		}
		if _, ok := s.records[rec.item.ParentID]; !ok {
			s.logger.Warn("Node parent missing, re-rooting",
				zap.String("nodeID", id),
				zap.String("parentID", rec.item.ParentID),
			)
			rec.item.ParentID = rootID
		}
	}
	for id, rec := range s.records {
		if id == rootID {
			continue
		}
		seen := map[string]struct{}{id: {}}
		cur := rec.item.ParentID
		for cur != rootID {
			if _, cycle := seen[cur]; cycle {
				s.logger.Warn("Cycle in parent chain, re-rooting", zap.String("nodeID", id))
				rec.item.ParentID = rootID
				break
			}
			seen[cur] = struct{}{}
			next, ok := s.records[cur]
			if !ok {
				rec.item.ParentID = rootID
				break
			}
			cur = next.item.ParentID
		}
	}

	// Rebuild child membership from the pointers, preserving stored order.
	for id, rec := range s.records {
		kept := rec.item.Children[:0:0]
		for _, child := range rec.item.Children {
			childRec, ok := s.records[child]
			if !ok {
				s.logger.Warn("Dropping child reference to missing node",
					zap.String("nodeID", id),
					zap.String("childID", child),
				)
				continue
			}
			if childRec.item.ParentID != id {
				s.logger.Warn("Dropping child reference contradicted by parent pointer",
					zap.String("nodeID", id),
					zap.String("childID", child),
				)
				continue
			}
			kept = append(kept, child)
		}
		rec.item.Children = kept
	}
	for id, rec := range s.records {
		if id == rootID {
			continue
		}
		parent := s.records[rec.item.ParentID]
		if !containsString(parent.item.Children, id) {
			s.logger.Warn("Re-attaching node missing from parent child list",
				zap.String("nodeID", id),
				zap.String("parentID", rec.item.ParentID),
			)
			parent.item.Children = append(parent.item.Children, id)
		}
	}
}

// persistRecordLocked writes a record's files the same way writeNodeLocked
// does, without going through the entity.
func (s *LocalStore) persistRecordLocked(rec *nodeRecord) error {
	if rec.item.HasContent {
		if err := writeFileAtomic(s.contentPath(rec.item.ID), rec.content); err != nil {
			return pkgerrors.NewIOError("write node content", err)
		}
	}
	data, err := json.MarshalIndent(rec.item, "", "  ")
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode node metadata").WithCause(err)
	}
	if err := writeFileAtomic(s.metaPath(rec.item.ID), data); err != nil {
		return pkgerrors.NewIOError("write node metadata", err)
	}
	s.mutated = true
	return nil
}

func (s *LocalStore) writeManifestLocked() error {
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode manifest").WithCause(err)
	}
	if err := writeFileAtomic(filepath.Join(s.baseDir, manifestFileName), data); err != nil {
		return pkgerrors.NewIOError("write manifest", err)
	}
	return nil
}

func (s *LocalStore) metaPath(id string) string {
	return filepath.Join(s.baseDir, nodesDirName, id+metaExt)
}

func (s *LocalStore) contentPath(id string) string {
	return filepath.Join(s.baseDir, nodesDirName, id+contentExt)
}

func localDir(location entities.StoreLocation) (string, error) {
	if !location.IsLocal() {
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("local persistence cannot serve a %q location", location.Kind))
	}
	if location.Path == "" {
		return "", pkgerrors.NewValidationError("local store location requires a path")
	}
	return filepath.Clean(location.Path), nil
}

func readManifest(dir string) (entities.StoreManifest, error) {
	path := filepath.Join(dir, manifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entities.StoreManifest{}, pkgerrors.NewNotFoundError("store at " + dir)
		}
		return entities.StoreManifest{}, pkgerrors.NewIOError("read manifest", err)
	}
	var manifest entities.StoreManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return entities.StoreManifest{}, pkgerrors.NewDecodeError("store manifest at "+dir, err)
	}
	if manifest.ID.IsZero() || manifest.RootNodeID.IsZero() {
		return entities.StoreManifest{}, pkgerrors.NewDecodeError("store manifest at "+dir,
			fmt.Errorf("manifest missing store or root id"))
	}
	return manifest, nil
}

// creationBlocker reports the first directory entry that makes the
// location unusable for a fresh store. Lock files, interrupted-write
// remnants and an empty skeleton do not count.
func creationBlocker(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == lockFileName || isTempFile(name) {
			continue
		}
		if entry.IsDir() {
			switch name {
			case nodesDirName, assetsDirName, indexDirName, syncDirName:
				sub, err := os.ReadDir(filepath.Join(dir, name))
				if err == nil && len(sub) == 0 {
					continue
				}
			}
		}
		return name, true
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

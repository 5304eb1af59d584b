package entities

import (
	"time"

	"github.com/joeleaver/pimble/domain/core/valueobjects"
)

// CurrentManifestVersion is the manifest format this build reads and
// writes. Opening a manifest with a higher version fails; lower versions
// are upgraded in place on the next write.
const CurrentManifestVersion = 1

// CurrentSchemaVersion is the node-file schema this build understands.
const CurrentSchemaVersion = 1

// LocationKind discriminates where a store's bytes live.
type LocationKind string

const (
	LocationLocal   LocationKind = "local"
	LocationRemote  LocationKind = "remote"
	LocationMounted LocationKind = "mounted"
)

// AuthKind names how a remote location authenticates.
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthAPIKey AuthKind = "api_key"
	AuthBearer AuthKind = "bearer"
	AuthOAuth2 AuthKind = "oauth2"
)

// StoreLocation describes where a store is persisted: a local directory, a
// remote endpoint with a credential reference, or a mount inside another
// store's node.
type StoreLocation struct {
	Kind LocationKind `json:"kind"`

	// Local
	Path string `json:"path,omitempty"`

	// Remote. CredentialRef names a credential held elsewhere; secrets are
	// never persisted in store metadata.
	URL           string   `json:"url,omitempty"`
	Auth          AuthKind `json:"auth,omitempty"`
	CredentialRef string   `json:"credential_ref,omitempty"`

	// Mounted
	StoreID valueobjects.StoreID `json:"store_id,omitempty"`
	NodeID  valueobjects.NodeID  `json:"node_id,omitempty"`
}

// NewLocalLocation points at a directory on the local filesystem
func NewLocalLocation(path string) StoreLocation {
	return StoreLocation{Kind: LocationLocal, Path: path}
}

// NewRemoteLocation points at a remote endpoint
func NewRemoteLocation(url string, auth AuthKind, credentialRef string) StoreLocation {
	return StoreLocation{Kind: LocationRemote, URL: url, Auth: auth, CredentialRef: credentialRef}
}

// NewMountedLocation points inside another store's node
func NewMountedLocation(storeID valueobjects.StoreID, nodeID valueobjects.NodeID) StoreLocation {
	return StoreLocation{Kind: LocationMounted, StoreID: storeID, NodeID: nodeID}
}

// IsLocal reports whether the location is a local directory
func (l StoreLocation) IsLocal() bool {
	return l.Kind == LocationLocal
}

// SyncStatus names the store's synchronization condition.
type SyncStatus string

const (
	SyncOffline  SyncStatus = "offline"
	SyncSyncing  SyncStatus = "syncing"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
)

// ConflictInfo describes one detected sync conflict.
type ConflictInfo struct {
	NodeID      valueobjects.NodeID `json:"node_id"`
	Description string              `json:"description"`
	DetectedAt  time.Time           `json:"detected_at"`
}

// SyncState carries the store's synchronization condition plus the details
// the active status needs.
type SyncState struct {
	Status    SyncStatus     `json:"status"`
	LastSync  time.Time      `json:"last_sync,omitempty"`
	Conflicts []ConflictInfo `json:"conflicts,omitempty"`
}

// NewOfflineState is the state of every freshly created or opened store
func NewOfflineState() SyncState {
	return SyncState{Status: SyncOffline}
}

// NewSyncedState records a completed sync
func NewSyncedState(at time.Time) SyncState {
	return SyncState{Status: SyncSynced, LastSync: at}
}

// NewConflictState records detected conflicts
func NewConflictState(conflicts []ConflictInfo) SyncState {
	return SyncState{Status: SyncConflict, Conflicts: conflicts}
}

// StoreManifest is the on-disk identity record at <store-root>/manifest.json.
// Its field layout is a compatibility contract.
type StoreManifest struct {
	Version       int                  `json:"version"`
	ID            valueobjects.StoreID `json:"id"`
	Name          string               `json:"name"`
	RootNodeID    valueobjects.NodeID  `json:"root_node_id"`
	SchemaVersion int                  `json:"schema_version"`
	CreatedAt     time.Time            `json:"created_at"`
	ModifiedAt    time.Time            `json:"modified_at"`
}

// NewStoreManifest allocates the manifest for a fresh store.
func NewStoreManifest(name string, rootNodeID valueobjects.NodeID) StoreManifest {
	now := time.Now().UTC()
	return StoreManifest{
		Version:       CurrentManifestVersion,
		ID:            valueobjects.NewStoreID(),
		Name:          name,
		RootNodeID:    rootNodeID,
		SchemaVersion: CurrentSchemaVersion,
		CreatedAt:     now,
		ModifiedAt:    now,
	}
}

// Store is a root-anchored tree of nodes backed by one persistence
// location.
type Store struct {
	id         valueobjects.StoreID
	name       string
	location   StoreLocation
	rootNodeID valueobjects.NodeID
	syncState  SyncState
}

// NewStore builds the store descriptor from its manifest and location.
func NewStore(manifest StoreManifest, location StoreLocation) *Store {
	return &Store{
		id:         manifest.ID,
		name:       manifest.Name,
		location:   location,
		rootNodeID: manifest.RootNodeID,
		syncState:  NewOfflineState(),
	}
}

// ID returns the store identifier
func (s *Store) ID() valueobjects.StoreID {
	return s.id
}

// Name returns the display name
func (s *Store) Name() string {
	return s.name
}

// Location returns where the store is persisted
func (s *Store) Location() StoreLocation {
	return s.location
}

// RootNodeID returns the id of the store's root node
func (s *Store) RootNodeID() valueobjects.NodeID {
	return s.rootNodeID
}

// SyncState returns the current synchronization condition
func (s *Store) SyncState() SyncState {
	return s.syncState
}

// SetSyncState replaces the synchronization condition
func (s *Store) SetSyncState(state SyncState) {
	s.syncState = state
}

// Rename updates the display name
func (s *Store) Rename(name string) {
	s.name = name
}

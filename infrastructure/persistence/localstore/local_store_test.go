package localstore

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFactory() ports.PersistenceFactory {
	return NewFactory(zap.NewNop())
}

func createTestStore(t *testing.T) (ports.Persistence, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "store")
	store, err := newTestFactory().Create(context.Background(), entities.NewLocalLocation(dir), "Test Store")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store, dir
}

func addChildNode(t *testing.T, store ports.Persistence, parentID valueobjects.NodeID, title string, content []byte) *entities.Node {
	t.Helper()
	ctx := context.Background()
	node := entities.NewNode(entities.NodeTypeDocument, parentID, title)
	if content != nil {
		node.SetContent(content)
	}
	require.NoError(t, store.WriteNode(ctx, node))

	parent, err := store.ReadNode(ctx, parentID)
	require.NoError(t, err)
	parent.AddChild(node.ID(), -1)
	require.NoError(t, store.WriteNode(ctx, parent))
	return node
}

func documentBytes(t *testing.T, text string) []byte {
	t.Helper()
	doc := crdt.New()
	doc.InsertText(0, text)
	return doc.Save()
}

func TestFactory_Create_Layout(t *testing.T) {
	store, dir := createTestStore(t)

	manifest := store.Manifest()
	assert.Equal(t, "Test Store", manifest.Name)
	assert.Equal(t, entities.CurrentManifestVersion, manifest.Version)
	assert.False(t, manifest.ID.IsZero())
	assert.False(t, manifest.RootNodeID.IsZero())

	for _, sub := range []string{"nodes", "assets", "index", "sync"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	_, err := os.Stat(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".lock"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "nodes", manifest.RootNodeID.String()+".json"))
	require.NoError(t, err)

	root, err := store.ReadNode(context.Background(), manifest.RootNodeID)
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, entities.NodeTypeFolder, root.Type())
	assert.Equal(t, "Test Store", root.Title())
}

func TestFactory_Create_RefusesNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	_, err := newTestFactory().Create(context.Background(), entities.NewLocalLocation(dir), "Test")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))
}

func TestFactory_Create_IgnoresCreationRemnants(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nodes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json.tmp42"), []byte("{"), 0o644))

	store, err := newTestFactory().Create(context.Background(), entities.NewLocalLocation(dir), "Test")
	require.NoError(t, err)
	store.Close(context.Background())
}

func TestFactory_Open_Errors(t *testing.T) {
	ctx := context.Background()
	factory := newTestFactory()

	t.Run("missing directory", func(t *testing.T) {
		_, err := factory.Open(ctx, entities.NewLocalLocation(filepath.Join(t.TempDir(), "absent")))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("no manifest", func(t *testing.T) {
		_, err := factory.Open(ctx, entities.NewLocalLocation(t.TempDir()))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("corrupt manifest", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{not json"), 0o644))
		_, err := factory.Open(ctx, entities.NewLocalLocation(dir))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDecode(err))
	})

	t.Run("future manifest version", func(t *testing.T) {
		store, dir := createTestStore(t)
		require.NoError(t, store.Close(ctx))

		path := filepath.Join(dir, "manifest.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		raw["version"] = entities.CurrentManifestVersion + 5
		data, err = json.Marshal(raw)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = factory.Open(ctx, entities.NewLocalLocation(dir))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsVersionMismatch(err))
	})

	t.Run("non local location", func(t *testing.T) {
		_, err := factory.Open(ctx, entities.NewRemoteLocation("https://example.com", entities.AuthNone, ""))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestLock_SecondOpenRefused(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	_, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyOpenElsewhere(err))

	require.NoError(t, store.Close(ctx))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	reopened.Close(ctx)
}

func TestLock_StaleLockReplaced(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	require.NoError(t, store.Close(ctx))

	// A reaped child pid is a real pid that is no longer alive.
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	deadPID := cmd.Process.Pid

	hostname, _ := os.Hostname()
	payload, err := json.Marshal(lockInfo{PID: deadPID, Hostname: hostname, AcquiredAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lock"), payload, 0o644))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	reopened.Close(ctx)
}

func TestWriteNode_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	rootID := store.Manifest().RootNodeID

	content := documentBytes(t, "hello world")
	node := entities.NewNode(entities.NodeTypeDocument, rootID, "Greeting")
	node.SetTags([]string{"inbox", "draft"})
	node.SetCustom("rating", 5.0)
	node.SetContent(content)
	node.AddLink(entities.NodeLink{
		Target:   entities.NewExternalTarget("https://example.com"),
		LinkType: "reference",
	})
	require.NoError(t, store.WriteNode(ctx, node))

	got, err := store.ReadNode(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, "Greeting", got.Title())
	assert.Equal(t, entities.NodeTypeDocument, got.Type())
	assert.Equal(t, []string{"inbox", "draft"}, got.Tags())
	assert.Equal(t, 5.0, got.Custom()["rating"])
	assert.Equal(t, content, got.Content())
	assert.False(t, got.ContentCorrupted())
	require.Len(t, got.Links(), 1)
	assert.Equal(t, entities.LinkTargetExternal, got.Links()[0].Target.Kind)

	_, err = os.Stat(filepath.Join(dir, "nodes", node.ID().String()+".content"))
	require.NoError(t, err)

	doc, err := crdt.Load(got.Content())
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text())
}

func TestWriteNode_FolderHasNoContentFile(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	folder := entities.NewNode(entities.NodeTypeFolder, store.Manifest().RootNodeID, "Projects")
	require.NoError(t, store.WriteNode(ctx, folder))

	_, err := os.Stat(filepath.Join(dir, "nodes", folder.ID().String()+".content"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadNode_NotFound(t *testing.T) {
	store, _ := createTestStore(t)
	_, err := store.ReadNode(context.Background(), valueobjects.NewNodeID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	rootID := store.Manifest().RootNodeID

	a := addChildNode(t, store, rootID, "A", documentBytes(t, "alpha"))
	b := addChildNode(t, store, rootID, "B", nil)
	c := addChildNode(t, store, a.ID(), "C", documentBytes(t, "gamma"))
	require.NoError(t, store.Close(ctx))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	ids, err := reopened.ListNodeIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	children, err := reopened.ListChildren(ctx, rootID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.True(t, children[0].Equals(a.ID()))
	assert.True(t, children[1].Equals(b.ID()))

	got, err := reopened.ReadNode(ctx, c.ID())
	require.NoError(t, err)
	doc, err := crdt.Load(got.Content())
	require.NoError(t, err)
	assert.Equal(t, "gamma", doc.Text())
}

func TestDeleteNode(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	rootID := store.Manifest().RootNodeID

	parent := addChildNode(t, store, rootID, "Parent", nil)
	child := addChildNode(t, store, parent.ID(), "Child", documentBytes(t, "text"))

	t.Run("root is not deletable", func(t *testing.T) {
		err := store.DeleteNode(ctx, rootID, true)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsStructuralViolation(err))
		appErr := pkgerrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeRootDelete, appErr.Code)
	})

	t.Run("populated node needs recursive", func(t *testing.T) {
		err := store.DeleteNode(ctx, parent.ID(), false)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsHasChildren(err))
	})

	t.Run("recursive removes subtree and files", func(t *testing.T) {
		require.NoError(t, store.DeleteNode(ctx, parent.ID(), true))

		_, err := store.ReadNode(ctx, parent.ID())
		assert.True(t, pkgerrors.IsNotFound(err))
		_, err = store.ReadNode(ctx, child.ID())
		assert.True(t, pkgerrors.IsNotFound(err))

		_, err = os.Stat(filepath.Join(dir, "nodes", child.ID().String()+".json"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dir, "nodes", child.ID().String()+".content"))
		assert.True(t, os.IsNotExist(err))

		children, err := store.ListChildren(ctx, rootID)
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("missing node", func(t *testing.T) {
		err := store.DeleteNode(ctx, valueobjects.NewNodeID(), false)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestOpen_TruncatedContentSurfacesCorruption(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	rootID := store.Manifest().RootNodeID

	node := addChildNode(t, store, rootID, "Damaged", documentBytes(t, "precious"))
	require.NoError(t, store.Close(ctx))

	contentPath := filepath.Join(dir, "nodes", node.ID().String()+".content")
	require.NoError(t, os.Truncate(contentPath, 0))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	corrupted := reopened.CorruptedNodes()
	require.Len(t, corrupted, 1)
	assert.True(t, corrupted[0].Equals(node.ID()))

	got, err := reopened.ReadNode(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, "Damaged", got.Title())
	assert.True(t, got.ContentCorrupted())
}

func TestOpen_MissingContentSurfacesCorruption(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	node := addChildNode(t, store, store.Manifest().RootNodeID, "Lost", documentBytes(t, "gone"))
	require.NoError(t, store.Close(ctx))

	require.NoError(t, os.Remove(filepath.Join(dir, "nodes", node.ID().String()+".content")))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	got, err := reopened.ReadNode(ctx, node.ID())
	require.NoError(t, err)
	assert.True(t, got.ContentCorrupted())
}

func TestOpen_SweepsInterruptedWriteRemnants(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	require.NoError(t, store.Close(ctx))

	stray := filepath.Join(dir, "nodes", "whatever.json.tmp991")
	require.NoError(t, os.WriteFile(stray, []byte("partial"), 0o644))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_AdoptsUnreferencedContent(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	node := addChildNode(t, store, store.Manifest().RootNodeID, "Crashed mid write", nil)
	require.NoError(t, store.Close(ctx))

	// Simulate a crash after the content write but before the metadata write.
	content := documentBytes(t, "rescued edit")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes", node.ID().String()+".content"), content, 0o644))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	got, err := reopened.ReadNode(ctx, node.ID())
	require.NoError(t, err)
	assert.False(t, got.ContentCorrupted())
	doc, err := crdt.Load(got.Content())
	require.NoError(t, err)
	assert.Equal(t, "rescued edit", doc.Text())
}

func TestOpen_RepairsOrphansAndDanglingRefs(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	rootID := store.Manifest().RootNodeID

	orphan := addChildNode(t, store, rootID, "Orphan parent", nil)
	grandchild := addChildNode(t, store, orphan.ID(), "Grandchild", nil)
	require.NoError(t, store.Close(ctx))

	// Remove the middle node's metadata by hand; its child is now orphaned
	// and the root carries a dangling reference.
	require.NoError(t, os.Remove(filepath.Join(dir, "nodes", orphan.ID().String()+".json")))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	children, err := reopened.ListChildren(ctx, rootID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].Equals(grandchild.ID()))

	got, err := reopened.ReadNode(ctx, grandchild.ID())
	require.NoError(t, err)
	assert.True(t, got.ParentID().Equals(rootID))
}

func TestOpen_RecreatesMissingRoot(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	rootID := store.Manifest().RootNodeID
	require.NoError(t, store.Close(ctx))

	require.NoError(t, os.Remove(filepath.Join(dir, "nodes", rootID.String()+".json")))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	root, err := reopened.ReadNode(ctx, rootID)
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, entities.NodeTypeFolder, root.Type())
}

func TestAssets(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	data := []byte("png bytes here")
	hash, err := store.PutAsset(ctx, data, "png")
	require.NoError(t, err)
	assert.Equal(t, "png", hash.Ext())

	again, err := store.PutAsset(ctx, data, "png")
	require.NoError(t, err)
	assert.True(t, hash.Equals(again))

	entries, err := os.ReadDir(filepath.Join(dir, "assets"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	got, err := store.OpenAsset(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = store.OpenAsset(ctx, valueobjects.NewContentHash([]byte("other"), "bin"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSweepAssets(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStore(t)

	kept, err := store.PutAsset(ctx, []byte("keep me"), "txt")
	require.NoError(t, err)
	_, err = store.PutAsset(ctx, []byte("collect me"), "txt")
	require.NoError(t, err)

	removed, err := store.SweepAssets(ctx, []valueobjects.ContentHash{kept})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.OpenAsset(ctx, kept)
	require.NoError(t, err)
}

func TestHeads_PersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	doc := crdt.New()
	doc.InsertText(0, "tracked")
	nodeID := valueobjects.NewNodeID().String()
	require.NoError(t, store.SaveHeads(ctx, map[string]crdt.VersionVector{nodeID: doc.Heads()}))
	require.NoError(t, store.Flush(ctx))
	require.NoError(t, store.Close(ctx))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	heads, err := reopened.Heads(ctx)
	require.NoError(t, err)
	require.Contains(t, heads, nodeID)
	assert.True(t, heads[nodeID].Equal(doc.Heads()))
}

func TestHeads_CorruptFileDiscarded(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)
	require.NoError(t, store.Close(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync", "heads.json"), []byte("not json"), 0o644))

	reopened, err := newTestFactory().Open(ctx, entities.NewLocalLocation(dir))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	heads, err := reopened.Heads(ctx)
	require.NoError(t, err)
	assert.Empty(t, heads)
}

func TestRefreshNode_SeesExternalEdit(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	node := addChildNode(t, store, store.Manifest().RootNodeID, "Watched", documentBytes(t, "before"))

	// Edit the metadata file behind the store's back.
	metaPath := filepath.Join(dir, "nodes", node.ID().String()+".json")
	data, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["title"] = "Edited outside"
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metaPath, data, 0o644))

	refreshed, err := store.RefreshNode(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, "Edited outside", refreshed.Title())

	got, err := store.ReadNode(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, "Edited outside", got.Title())
}

func TestRefreshNode_GoneDropsNode(t *testing.T) {
	ctx := context.Background()
	store, dir := createTestStore(t)

	node := addChildNode(t, store, store.Manifest().RootNodeID, "Doomed", nil)
	require.NoError(t, os.Remove(filepath.Join(dir, "nodes", node.ID().String()+".json")))

	_, err := store.RefreshNode(ctx, node.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = store.ReadNode(ctx, node.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestWrite_AfterCloseRefused(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStore(t)
	require.NoError(t, store.Close(ctx))

	node := entities.NewNode(entities.NodeTypeDocument, store.Manifest().RootNodeID, "late")
	err := store.WriteNode(ctx, node)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStoreClosing(err))
}

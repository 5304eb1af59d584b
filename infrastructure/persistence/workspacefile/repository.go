// Package workspacefile persists the user's workspace document as a
// single JSON file, written atomically like every other file in the
// system.
package workspacefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"context"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

// DefaultWorkspaceName is the name given to a workspace created on first
// use.
const DefaultWorkspaceName = "My Workspace"

// Repository implements ports.WorkspaceRepository on one JSON file.
type Repository struct {
	path   string
	logger *zap.Logger
}

// NewRepository creates a repository for the workspace file at path.
func NewRepository(path string, logger *zap.Logger) ports.WorkspaceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{path: path, logger: logger}
}

// Path returns where the workspace document lives.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the workspace. A missing file yields a fresh workspace,
// persisted immediately so the first load and every later one agree on
// the workspace id.
func (r *Repository) Load(ctx context.Context) (*entities.Workspace, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		ws := entities.NewWorkspace(DefaultWorkspaceName)
		if err := r.Save(ctx, ws); err != nil {
			return nil, err
		}
		r.logger.Info("Created workspace",
			zap.String("workspaceID", ws.ID.String()),
			zap.String("path", r.path),
		)
		return ws, nil
	}
	if err != nil {
		return nil, pkgerrors.NewIOError("read workspace", err)
	}

	var ws entities.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, pkgerrors.NewDecodeError(fmt.Sprintf("workspace file %s", r.path), err)
	}
	if ws.Version > entities.CurrentWorkspaceVersion {
		return nil, pkgerrors.NewVersionMismatchError(ws.Version, entities.CurrentWorkspaceVersion)
	}
	return &ws, nil
}

// Save persists the workspace through a temp file and rename.
func (r *Repository) Save(ctx context.Context, workspace *entities.Workspace) error {
	workspace.Version = entities.CurrentWorkspaceVersion

	data, err := json.MarshalIndent(workspace, "", "  ")
	if err != nil {
		return pkgerrors.NewIOError("encode workspace", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkgerrors.NewIOError("create workspace directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp*")
	if err != nil {
		return pkgerrors.NewIOError("create workspace temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pkgerrors.NewIOError("write workspace", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pkgerrors.NewIOError("sync workspace", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return pkgerrors.NewIOError("close workspace temp file", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return pkgerrors.NewIOError("replace workspace file", err)
	}
	return nil
}

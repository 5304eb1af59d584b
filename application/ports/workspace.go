package ports

import (
	"context"

	"github.com/joeleaver/pimble/domain/core/entities"
)

// WorkspaceRepository persists the user's workspace document: which
// stores are attached and the UI state that travels with them.
type WorkspaceRepository interface {
	// Load reads the workspace, creating a fresh one on first use.
	Load(ctx context.Context) (*entities.Workspace, error)

	// Save persists the workspace atomically.
	Save(ctx context.Context, workspace *entities.Workspace) error

	// Path returns where the workspace document lives.
	Path() string
}

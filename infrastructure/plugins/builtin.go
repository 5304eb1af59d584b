package plugins

import (
	"fmt"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
)

// BuiltinHandlers returns the handlers for the known node types.
func BuiltinHandlers() []ports.TypeHandler {
	return []ports.TypeHandler{
		DocumentHandler{},
		FolderHandler{},
		ImageHandler{},
		CanvasHandler{},
		MountHandler{},
	}
}

// decode loads content bytes through the engine, treating empty content
// as an empty document.
func decode(content []byte) (*crdt.Document, error) {
	if len(content) == 0 {
		return crdt.New(), nil
	}
	return crdt.Load(content)
}

// DocumentHandler serves the default text document type.
type DocumentHandler struct{}

func (DocumentHandler) NodeType() string { return entities.NodeTypeDocument }

func (DocumentHandler) InitContent() []byte { return crdt.New().Save() }

func (DocumentHandler) Validate(content []byte) error {
	_, err := decode(content)
	return err
}

func (DocumentHandler) Render(content []byte) (ports.RenderOutput, error) {
	doc, err := decode(content)
	if err != nil {
		return ports.RenderOutput{}, err
	}
	return ports.RenderOutput{Format: "text", Data: doc.Text()}, nil
}

func (DocumentHandler) ExtractText(content []byte) (string, error) {
	doc, err := decode(content)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// FolderHandler serves folders, which carry structure but no body.
type FolderHandler struct{}

func (FolderHandler) NodeType() string { return entities.NodeTypeFolder }

// InitContent returns nil: a folder's document reaches disk only if
// something is ever written into it.
func (FolderHandler) InitContent() []byte { return nil }

func (FolderHandler) Validate(content []byte) error {
	_, err := decode(content)
	return err
}

func (FolderHandler) Render(content []byte) (ports.RenderOutput, error) {
	return ports.RenderOutput{Format: "text", Data: ""}, nil
}

func (FolderHandler) ExtractText(content []byte) (string, error) { return "", nil }

// ImageHandler serves image nodes: the document holds an "asset" field
// pointing at a content-addressed file and an "alt" description.
type ImageHandler struct{}

func (ImageHandler) NodeType() string { return entities.NodeTypeImage }

func (ImageHandler) InitContent() []byte { return crdt.New().Save() }

func (ImageHandler) Validate(content []byte) error {
	doc, err := decode(content)
	if err != nil {
		return err
	}
	// An image may be created before its bytes are attached; once an
	// asset ref exists it must look like a content-addressed filename.
	if ref, ok := doc.Field("asset"); ok && ref != "" {
		if _, err := valueobjects.NewContentHashFromFilename(ref); err != nil {
			return fmt.Errorf("asset reference %q: %w", ref, err)
		}
	}
	return nil
}

func (ImageHandler) Render(content []byte) (ports.RenderOutput, error) {
	doc, err := decode(content)
	if err != nil {
		return ports.RenderOutput{}, err
	}
	ref, _ := doc.Field("asset")
	return ports.RenderOutput{Format: "asset", Data: ref}, nil
}

func (ImageHandler) ExtractText(content []byte) (string, error) {
	doc, err := decode(content)
	if err != nil {
		return "", err
	}
	alt, _ := doc.Field("alt")
	return alt, nil
}

// CanvasHandler serves freeform canvas nodes. The canvas layout lives in
// document fields; the text body holds its notes.
type CanvasHandler struct{}

func (CanvasHandler) NodeType() string { return entities.NodeTypeCanvas }

func (CanvasHandler) InitContent() []byte { return crdt.New().Save() }

func (CanvasHandler) Validate(content []byte) error {
	_, err := decode(content)
	return err
}

func (CanvasHandler) Render(content []byte) (ports.RenderOutput, error) {
	doc, err := decode(content)
	if err != nil {
		return ports.RenderOutput{}, err
	}
	return ports.RenderOutput{Format: "canvas", Data: doc.Text()}, nil
}

func (CanvasHandler) ExtractText(content []byte) (string, error) {
	doc, err := decode(content)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// MountHandler serves store-mount nodes: a node whose document names
// another store to splice into the tree view.
type MountHandler struct{}

func (MountHandler) NodeType() string { return entities.NodeTypeStore }

func (MountHandler) InitContent() []byte { return crdt.New().Save() }

func (MountHandler) Validate(content []byte) error {
	_, err := decode(content)
	return err
}

func (MountHandler) Render(content []byte) (ports.RenderOutput, error) {
	doc, err := decode(content)
	if err != nil {
		return ports.RenderOutput{}, err
	}
	ref, _ := doc.Field("store_id")
	return ports.RenderOutput{Format: "mount", Data: ref}, nil
}

func (MountHandler) ExtractText(content []byte) (string, error) { return "", nil }

// PassthroughHandler is the degradation path for unknown node types:
// everything is accepted and surfaced as-is, nothing is interpreted.
type PassthroughHandler struct{}

func (PassthroughHandler) NodeType() string { return "" }

func (PassthroughHandler) InitContent() []byte { return nil }

func (PassthroughHandler) Validate(content []byte) error { return nil }

func (PassthroughHandler) Render(content []byte) (ports.RenderOutput, error) {
	doc, err := decode(content)
	if err != nil {
		// Unknown types never fail: surface nothing rather than error.
		return ports.RenderOutput{Format: "text", Data: ""}, nil
	}
	return ports.RenderOutput{Format: "text", Data: doc.Text()}, nil
}

func (PassthroughHandler) ExtractText(content []byte) (string, error) {
	doc, err := decode(content)
	if err != nil {
		return "", nil
	}
	return doc.Text(), nil
}

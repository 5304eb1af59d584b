package ports

// RenderOutput is a handler's presentation of node content.
type RenderOutput struct {
	// Format names the payload encoding, such as "html" or "text".
	Format string
	// Data is the rendered payload.
	Data string
}

// TypeHandler adds behavior for one node type. The core never interprets
// content beyond the engine encoding; everything type-specific funnels
// through here. A type without a registered handler gets pass-through
// behavior: validation accepts, rendering and extraction return the
// plain text, initial content is empty.
type TypeHandler interface {
	// NodeType returns the type string this handler serves.
	NodeType() string

	// InitContent returns encoded initial content for a new node, or nil
	// for an empty document.
	InitContent() []byte

	// Validate inspects encoded content before it is stored. An error
	// rejects the write.
	Validate(content []byte) error

	// Render produces a display form of encoded content.
	Render(content []byte) (RenderOutput, error)

	// ExtractText produces the plain text used for indexing and search.
	ExtractText(content []byte) (string, error)
}

// HandlerRegistry resolves node types to handlers. Resolve never returns
// nil: unknown types get the pass-through handler.
type HandlerRegistry interface {
	Register(handler TypeHandler)
	Resolve(nodeType string) TypeHandler
	Known() []string
}

package export

// Options configures the rendered diagram.
type Options struct {
	// ShowActions labels transition arrows with their action names
	ShowActions bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// Fence wraps the document in a ```mermaid code fence
	Fence bool

	// Highlight marks specific states, e.g. the record's current state
	Highlight []string
}

// DefaultOptions returns sensible defaults for rendering.
func DefaultOptions() Options {
	return Options{
		ShowActions: true,
		Direction:   "TD",
		Fence:       true,
	}
}

// WithShowActions enables/disables action labels.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithFence enables/disables the code fence.
func (o Options) WithFence(fence bool) Options {
	o.Fence = fence

	return o
}

// WithHighlight sets states to highlight.
func (o Options) WithHighlight(states []string) Options {
	o.Highlight = states

	return o
}

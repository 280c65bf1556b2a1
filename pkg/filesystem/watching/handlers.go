package watching

// Handler processes a normalized event.
type Handler func(SystemEvent)

// Handlers is a dispatch table mapping event kinds to handlers. A handler
// registered for KindAny serves as the fallback for kinds without a dedicated
// handler.
type Handlers struct {
	// table maps kinds to handlers.
	table map[Kind]Handler
}

// NewHandlers creates an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{table: make(map[Kind]Handler)}
}

// Subscribe registers a handler for the specified kind, replacing any existing
// handler. Subscribing a nil handler removes the registration.
func (h *Handlers) Subscribe(kind Kind, handler Handler) {
	if handler == nil {
		delete(h.table, kind)
		return
	}
	h.table[kind] = handler
}

// Lookup returns the handler for the specified kind, falling back to the
// KindAny handler. It returns nil if neither is registered.
func (h *Handlers) Lookup(kind Kind) Handler {
	if handler, ok := h.table[kind]; ok {
		return handler
	}
	return h.table[KindAny]
}

// Dispatch invokes the handler for an event. It returns false if no handler
// was found.
func (h *Handlers) Dispatch(event SystemEvent) bool {
	if handler := h.Lookup(event.Kind); handler != nil {
		handler(event)
		return true
	}
	return false
}

package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use it to disable event emission without changing calling code. It is the
// executor default when no emitter is configured.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter. Safe for concurrent use, zero
// overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

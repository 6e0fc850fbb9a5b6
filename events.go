package farmsession

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event defines a public type used by farmsession APIs.
//
// Event is the closed set of session-state transitions the manager announces.
// The set is deliberately closed: handlers dispatch on tagged constants, not
// on strings.
type Event uint8

const (
	// EventLogin is an exported constant or variable used by the session manager.
	EventLogin Event = iota
	// EventLogout is an exported constant or variable used by the session manager.
	EventLogout
	// EventTokenRefresh is an exported constant or variable used by the session manager.
	EventTokenRefresh
	// EventSessionExpired is an exported constant or variable used by the session manager.
	EventSessionExpired
	// EventPermissionDenied is an exported constant or variable used by the session manager.
	EventPermissionDenied

	eventCount
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently.
func (e Event) String() string {
	switch e {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventTokenRefresh:
		return "token_refresh"
	case EventSessionExpired:
		return "session_expired"
	case EventPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

type busEntry struct {
	id uint64
	fn func(EventRecord)
}

// Bus defines a public type used by farmsession APIs.
//
// Bus is a synchronous publish/subscribe mechanism decoupling session-state
// transitions from UI reactions without a shared global store. Handlers run in
// registration order on the emitting goroutine. A panicking handler is
// recovered and logged so it cannot starve later handlers of the same event.
type Bus struct {
	mu       sync.Mutex
	handlers [eventCount][]busEntry
	nextID   uint64
	logger   zerolog.Logger
}

func newBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// On describes the on operation and its observable behavior.
//
// On registers a handler for the given event and returns an unsubscribe
// function that removes only that handler. Multiple handlers per event are
// allowed and invoked in registration order.
func (b *Bus) On(event Event, handler func(EventRecord)) func() {
	if b == nil || handler == nil || event >= eventCount {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], busEntry{id: id, fn: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		entries := b.handlers[event]
		for i, entry := range entries {
			if entry.id == id {
				b.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) emit(event Event, record EventRecord) {
	if b == nil || event >= eventCount {
		return
	}

	b.mu.Lock()
	entries := make([]busEntry, len(b.handlers[event]))
	copy(entries, b.handlers[event])
	b.mu.Unlock()

	for _, entry := range entries {
		b.invoke(event, entry, record)
	}
}

func (b *Bus) invoke(event Event, entry busEntry, record EventRecord) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", event.String()).
				Interface("panic", r).
				Msg("farmsession: event handler panicked")
		}
	}()

	entry.fn(record)
}

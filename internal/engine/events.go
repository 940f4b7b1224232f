package engine

import "sync"

// Event names observable on the engine. Subscribers receive them
// synchronously on the goroutine that caused them.
type Event string

const (
	EventOnline            Event = "online"
	EventOffline           Event = "offline"
	EventSyncStart         Event = "syncStart"
	EventSyncSuccess       Event = "syncSuccess"
	EventSyncError         Event = "syncError"
	EventSessionsReceived  Event = "sessionsReceived"
	EventSessionStarted    Event = "sessionStarted"
	EventSessionEnded      Event = "sessionEnded"
	EventSessionUpdated    Event = "sessionUpdated"
	EventSessionDeleted    Event = "sessionDeleted"
	EventOperationDropped  Event = "syncOperationDropped"
	EventUserCodeGenerated Event = "userCodeGenerated"
)

// SessionEvent is the payload of the four session lifecycle events.
type SessionEvent struct {
	SessionID string
	StartTime *int64
	EndTime   *int64
}

type emitter struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Event]map[int]func(any)
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[Event]map[int]func(any))}
}

// on registers a handler and returns an unsubscribe func.
func (e *emitter) on(ev Event, fn func(any)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers[ev] == nil {
		e.handlers[ev] = make(map[int]func(any))
	}
	id := e.nextID
	e.nextID++
	e.handlers[ev][id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[ev], id)
	}
}

func (e *emitter) emit(ev Event, payload any) {
	e.mu.RLock()
	fns := make([]func(any), 0, len(e.handlers[ev]))
	for _, fn := range e.handlers[ev] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(payload)
	}
}

// Package conditions implements the condition store.
// This file defines the store-owned observer list used to notify external
// consumers around mutating operations.
package conditions

// Event identifies a store notification point.
type Event string

// Notification events fired around mutating operations. Column-scoped
// events carry the column identifier; the clean events carry none.
const (
	EventBeforeAdd    Event = "beforeAdd"
	EventAfterAdd     Event = "afterAdd"
	EventBeforeRemove Event = "beforeRemove"
	EventAfterRemove  Event = "afterRemove"
	EventBeforeClear  Event = "beforeClear"
	EventAfterClear   Event = "afterClear"
	EventBeforeClean  Event = "beforeClean"
	EventAfterClean   Event = "afterClean"
)

// Listener receives store notifications. For column-scoped events the
// column identifier is passed; for EventBeforeClean/EventAfterClean it is
// the empty string.
//
// Listeners are invoked synchronously and in subscription order. "after"
// events fire only once the mutation is committed, so a panicking listener
// cannot leave the store in a half-mutated state.
type Listener func(event Event, column string)

// listenerEntry pairs a listener with a stable id for unsubscription.
type listenerEntry struct {
	id int
	fn Listener
}

// Subscribe registers a listener and returns a function that removes it.
// Subscribing a nil listener or subscribing on a destroyed store is a no-op.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil || s.destroyed {
		return func() {}
	}

	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: l})

	return func() {
		for i, entry := range s.listeners {
			if entry.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// notify delivers an event to all listeners in subscription order.
// Iterates over a snapshot so listeners may unsubscribe during delivery.
func (s *Store) notify(event Event, column string) {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := make([]listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	for _, entry := range snapshot {
		entry.fn(event, column)
	}
}

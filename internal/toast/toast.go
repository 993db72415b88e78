// Package toast keeps the list of transient user notifications, expires them on a
// per-kind timer and lets presentation layers observe the list.
//
// One Store is created per running application by the composition root and
// passed by reference to every page.
package toast

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a single toast. Values handed to listeners are copies.
type Notification struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Policy holds the auto-dismiss delay per kind. A zero or negative delay means
// the notification stays until it is removed explicitly.
type Policy map[Kind]time.Duration

// DefaultPolicy dismisses success and info toasts after 3 seconds and keeps
// error toasts until the user closes them.
func DefaultPolicy() Policy {
	return Policy{
		KindSuccess: 3 * time.Second,
		KindInfo:    3 * time.Second,
		KindError:   0,
	}
}

// Listener receives a snapshot of the active notifications after every change.
type Listener func([]Notification)

type entry struct {
	notification Notification
	timer        *time.Timer
}

// Store is the ordered list of active notifications.
//
// Add and Remove are atomic with respect to each other. Listeners are called
// in mutation order on the goroutine that made the change (or on a timer
// goroutine for expiry). A listener may read the Store but must not Add or
// Remove synchronously.
type Store struct {
	mu      sync.Mutex
	entries []*entry
	policy  Policy
	now     func() time.Time
	closed  bool

	// Every mutation takes a ticket under mu; listeners are notified strictly
	// in ticket order.
	nextTicket   uint64
	dispatchMu   sync.Mutex
	dispatchCond *sync.Cond
	turn         uint64

	listenersMu    sync.Mutex
	listeners      map[uint64]Listener
	nextListenerID uint64
}

type InitOption func(*Store)

func WithPolicy(policy Policy) InitOption {
	return func(s *Store) {
		s.policy = policy
	}
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) InitOption {
	return func(s *Store) {
		s.now = now
	}
}

func New(options ...InitOption) *Store {
	s := &Store{
		policy:    DefaultPolicy(),
		now:       time.Now,
		listeners: map[uint64]Listener{},
	}
	s.dispatchCond = sync.NewCond(&s.dispatchMu)
	for _, option := range options {
		option(s)
	}

	return s
}

// Add appends a notification and returns its id. The optional description is
// the first element of description.
func (s *Store) Add(kind Kind, title string, description ...string) string {
	notification := Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     title,
		CreatedAt: s.now(),
	}
	if len(description) > 0 {
		notification.Description = description[0]
	}

	s.mu.Lock()
	for s.indexOf(notification.ID) >= 0 {
		notification.ID = uuid.New().String()
	}
	e := &entry{notification: notification}
	s.entries = append(s.entries, e)
	if delay := s.policy[kind]; delay > 0 && !s.closed {
		id := notification.ID
		e.timer = time.AfterFunc(delay, func() {
			s.expire(id, e)
		})
	}
	s.commit()

	return notification.ID
}

// Remove dismisses the notification with id. Removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.removeAt(idx)
	s.commit()
}

// expire is the timer callback. The entry may already be gone, or its id may
// belong to a different entry, so both are checked before removing.
func (s *Store) expire(id string, e *entry) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 || s.entries[idx] != e {
		s.mu.Unlock()
		return
	}
	s.removeAt(idx)
	s.commit()
}

// List returns a snapshot of the active notifications in display order.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// ListKind returns the active notifications of one kind.
func (s *Store) ListKind(kind Kind) []Notification {
	return funk.Filter(s.List(), func(n Notification) bool {
		return n.Kind == kind
	}).([]Notification)
}

// Subscribe registers listener and returns the handle to unregister it.
func (s *Store) Subscribe(listener Listener) *Subscription {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.nextListenerID++
	id := s.nextListenerID
	s.listeners[id] = listener

	return &Subscription{store: s, id: id}
}

// ListenerCount returns the number of registered listeners.
func (s *Store) ListenerCount() int {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	return len(s.listeners)
}

// Close stops every pending expiry timer. Notifications stay in the list and
// later additions are never auto-dismissed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	delete(s.listeners, id)
}

func (s *Store) indexOf(id string) int {
	for i, e := range s.entries {
		if e.notification.ID == id {
			return i
		}
	}

	return -1
}

func (s *Store) removeAt(idx int) {
	if timer := s.entries[idx].timer; timer != nil {
		timer.Stop()
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
}

func (s *Store) snapshot() []Notification {
	result := make([]Notification, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e.notification)
	}

	return result
}

// commit must be called with mu held. It releases mu and notifies listeners.
func (s *Store) commit() {
	ticket := s.nextTicket
	s.nextTicket++
	snapshot := s.snapshot()
	s.mu.Unlock()

	s.dispatchMu.Lock()
	for s.turn != ticket {
		s.dispatchCond.Wait()
	}
	s.dispatchMu.Unlock()
	defer s.advanceTurn()

	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, id := range sortedKeys(s.listeners) {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// advanceTurn runs even when a listener panics, so later mutations are not
// stuck waiting for this ticket.
func (s *Store) advanceTurn() {
	s.dispatchMu.Lock()
	s.turn++
	s.dispatchCond.Broadcast()
	s.dispatchMu.Unlock()
}

func sortedKeys(listeners map[uint64]Listener) []uint64 {
	keys := make([]uint64, 0, len(listeners))
	for id := range listeners {
		keys = append(keys, id)
	}
	slices.Sort(keys)

	return keys
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	store *Store
	id    uint64
	once  sync.Once
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.unsubscribe(sub.id)
	})
}

// Package lifecycle distributes application foreground/background transitions
// to subscribers that are registered and removed explicitly.
package lifecycle

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Observer reacts to application lifecycle transitions.
type Observer interface {
	AppDidEnterBackground()
	AppWillEnterForeground()
}

// Notifier fans lifecycle transitions out to its subscribers.
// The zero value is ready to use.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]Observer
}

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers o and returns the function that removes it.
// The returned function may be called any number of times.
func (n *Notifier) Subscribe(o Observer) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.observers == nil {
		n.observers = make(map[int]Observer)
	}
	id := n.nextID
	n.nextID++
	n.observers[id] = o

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.observers, id)
			n.mu.Unlock()
		})
	}
}

// Len returns the number of current subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// EnterBackground notifies every subscriber that the application went to the background.
func (n *Notifier) EnterBackground() {
	for _, o := range n.snapshot() {
		o.AppDidEnterBackground()
	}
}

// EnterForeground notifies every subscriber that the application is returning to the foreground.
func (n *Notifier) EnterForeground() {
	for _, o := range n.snapshot() {
		o.AppWillEnterForeground()
	}
}

// snapshot lets observers unsubscribe from inside a callback without deadlocking.
func (n *Notifier) snapshot() []Observer {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := lo.Keys(n.observers)
	sort.Ints(ids)
	return lo.Map(ids, func(id int, _ int) Observer { return n.observers[id] })
}

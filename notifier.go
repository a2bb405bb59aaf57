// Copyright 2025 samber.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://github.com/samber/ro/blob/main/licenses/LICENSE.apache.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sf

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/samber/sf/internal/xtime"
)

// NotifyFunc is the update callback of a Notifier. It reports whether the
// value guarded by the notifier may have changed; when it does, the
// notification is forwarded to every observer. An error is recorded in the
// notifier stats and reported through OnUnhandledError; it never aborts a
// drain.
type NotifyFunc func() (changed bool, err error)

var notifierSeq atomic.Uint64

// allNotifiers is the weak registry of live notifiers, used by the GraphViz
// dump. Entries self-prune as notifiers are collected.
var (
	allNotifiersMu sync.Mutex
	allNotifiers   = map[uint64]weak.Pointer[Notifier]{}
)

func registerNotifier(n *Notifier) {
	allNotifiersMu.Lock()
	defer allNotifiersMu.Unlock()

	for id, wp := range allNotifiers {
		if wp.Value() == nil {
			delete(allNotifiers, id)
		}
	}
	allNotifiers[n.id] = weak.Make(n)
}

// Notifier is a node in the dependency graph. It tracks which downstream
// notifiers observe it, which upstream notifiers it observes, a drain
// priority strictly greater than every upstream's, and an active flag that
// is true iff some terminal subscriber is interested in its value.
//
// Observer and observed sets hold weak references: a notifier drops out of
// every neighbor's sets as soon as no strong owner retains it. Callers must
// keep a strong reference to any observable they want to stay wired.
type Notifier struct {
	id   uint64
	name string

	observers       map[uint64]weak.Pointer[Notifier]
	activeObservers map[uint64]struct{}
	observed        map[uint64]weak.Pointer[Notifier]

	priority     int
	forcedActive bool
	active       bool

	// Sticky flag: set when a call fires while inactive, cleared and
	// replayed when the node becomes active again.
	calledWhenInactive bool

	notifyFunc NotifyFunc

	// nil means the process-wide default refresher.
	refresher *Refresher

	// stats
	calls        int
	lastErr      error
	lastCallNano int64

	// inert notifiers (shared by Const) no-op every operation.
	inert bool
	// pinned notifiers (the ActiveNotifier sentinel) keep priority 0 and
	// track no upstreams.
	pinned bool
}

// NewNotifier creates a notifier with the given update callback. A nil
// callback defaults to "value may have changed".
func NewNotifier(notifyFunc NotifyFunc) *Notifier {
	if notifyFunc == nil {
		notifyFunc = func() (bool, error) { return true, nil }
	}

	n := &Notifier{
		id:              notifierSeq.Add(1),
		observers:       map[uint64]weak.Pointer[Notifier]{},
		activeObservers: map[uint64]struct{}{},
		observed:        map[uint64]weak.Pointer[Notifier]{},
		notifyFunc:      notifyFunc,
	}
	registerNotifier(n)

	return n
}

// NewNotifierWithRefresher creates a notifier bound to an explicit refresher
// instead of the process-wide default.
func NewNotifierWithRefresher(notifyFunc NotifyFunc, refresher *Refresher) *Notifier {
	n := NewNotifier(notifyFunc)
	n.refresher = refresher

	return n
}

func (n *Notifier) sched() *Refresher {
	if n.refresher != nil {
		return n.refresher
	}

	return defaultRefresher()
}

func newInertNotifier(name string) *Notifier {
	n := NewNotifier(nil)
	n.name = name
	n.inert = true

	return n
}

func newForcedActiveNotifier(name string) *Notifier {
	n := NewNotifier(nil)
	n.name = name
	n.forcedActive = true
	n.active = true
	n.pinned = true

	return n
}

var activeNotifierSingleton = newForcedActiveNotifier("active")

// ActiveNotifier returns the process-wide sentinel notifier: always forced
// active, priority 0. Subscribing it as an observer of a node activates the
// node's whole upstream chain.
func ActiveNotifier() *Notifier {
	return activeNotifierSingleton
}

// Name returns the diagnostic name of the notifier.
func (n *Notifier) Name() string {
	return n.name
}

// SetName sets the diagnostic name of the notifier.
func (n *Notifier) SetName(name string) {
	n.name = name
}

// Priority returns the drain priority. It is strictly greater than the
// priority of every observed upstream notifier.
func (n *Notifier) Priority() int {
	return n.priority
}

// Active reports whether some terminal (forced) subscriber is interested in
// this node.
func (n *Notifier) Active() bool {
	return n.active
}

// Calls returns how many times the update callback slot was dispatched.
func (n *Notifier) Calls() int {
	return n.calls
}

// LastError returns the error recorded by the most recent dispatch, or nil.
func (n *Notifier) LastError() error {
	return n.lastErr
}

// ObserverCount returns the number of live observers.
func (n *Notifier) ObserverCount() int {
	n.prune()
	return len(n.observers)
}

// Notify enqueues this notifier on the refresher. It is cheap, and duplicate
// schedulings coalesce within one drain.
func (n *Notifier) Notify() {
	if n.inert {
		return
	}
	n.sched().scheduleCall(n)
}

// call dispatches the update callback. Inactive nodes only mark themselves
// for replay on activation.
func (n *Notifier) call() error {
	if n.inert {
		return nil
	}

	n.calls++
	if !n.active {
		n.calledWhenInactive = true
		return nil
	}

	started := xtime.NowNanoMonotonic()
	changed, err := n.notifyFunc()
	n.lastCallNano = xtime.NowNanoMonotonic() - started
	if err != nil {
		return err
	}

	if changed || n.forcedActive {
		n.notifyObservers()
	}

	return nil
}

func (n *Notifier) notifyObservers() {
	n.eachObserver(func(observer *Notifier) {
		observer.Notify()
	})
}

// AddObserver wires `observer` downstream of this notifier: the observer's
// priority is raised above this notifier's (transitively through its own
// observers), and if the observer is active this node becomes active too.
//
// The observer must be strongly owned somewhere else: both neighbor sets are
// weak, so an otherwise-unreferenced observer silently drops off the graph.
func (n *Notifier) AddObserver(observer *Notifier) {
	if n.inert {
		return
	}

	n.prune()
	observer.setPriorityAtLeast(n.priority + 1)
	n.observers[observer.id] = weak.Make(observer)
	if !observer.pinned {
		observer.observed[n.id] = weak.Make(n)
	}
	if observer.active {
		n.addToActive(observer)
	}
}

// RemoveObserver unwires `observer`. Removing an active observer may
// deactivate this node and cascade upward.
func (n *Notifier) RemoveObserver(observer *Notifier) {
	if n.inert {
		return
	}

	n.prune()
	if _, ok := n.observers[observer.id]; !ok {
		return
	}

	delete(n.observers, observer.id)
	if !observer.pinned {
		delete(observer.observed, n.id)
	}
	if _, ok := n.activeObservers[observer.id]; ok {
		n.removeFromActive(observer)
	}
}

// Refresh drains pending work for this node and its transitive upstreams by
// temporarily subscribing the ActiveNotifier sentinel: the chain becomes
// active long enough to replay updates that fired while it was dormant.
// While an update transaction is open on the refresher, nothing is drained:
// replayed updates stay queued until the transaction closes.
func (n *Notifier) Refresh() {
	if n.inert {
		return
	}

	_, alreadyObserved := n.observers[activeNotifierSingleton.id]
	if !alreadyObserved {
		n.AddObserver(activeNotifierSingleton)
	}
	n.sched().maybeRun()
	if !alreadyObserved {
		n.RemoveObserver(activeNotifierSingleton)
	}
}

func (n *Notifier) addToActive(observer *Notifier) {
	n.activeObservers[observer.id] = struct{}{}
	n.updateActive()
}

func (n *Notifier) removeFromActive(observer *Notifier) {
	delete(n.activeObservers, observer.id)
	n.updateActive()
}

// updateActive recomputes the active flag and, when it flips, informs every
// observed upstream and replays a notification that fired while inactive.
func (n *Notifier) updateActive() {
	active := n.forcedActive || len(n.activeObservers) > 0
	if active == n.active {
		return
	}

	n.active = active
	n.eachObserved(func(observed *Notifier) {
		if active {
			observed.addToActive(n)
		} else {
			observed.removeFromActive(n)
		}
	})

	if active && n.calledWhenInactive {
		n.calledWhenInactive = false
		n.Notify()
	}
}

// setPriorityAtLeast enforces the priority invariant with a depth-first walk
// up the observer tree. O(edges) worst case per subscription; acceptable for
// the small, sparsely reshaped graphs this runtime targets.
func (n *Notifier) setPriorityAtLeast(minPriority int) {
	if n.pinned || n.priority >= minPriority {
		return
	}

	n.priority = minPriority
	n.eachObserver(func(observer *Notifier) {
		observer.setPriorityAtLeast(minPriority + 1)
	})
}

func (n *Notifier) eachObserver(fn func(*Notifier)) {
	for _, wp := range n.observers {
		if o := wp.Value(); o != nil {
			fn(o)
		}
	}
}

func (n *Notifier) eachObserved(fn func(*Notifier)) {
	for _, wp := range n.observed {
		if o := wp.Value(); o != nil {
			fn(o)
		}
	}
}

// prune drops neighbors whose owners were collected. Losing a dead active
// observer may deactivate this node.
func (n *Notifier) prune() {
	lostActive := false
	for id, wp := range n.observers {
		if wp.Value() == nil {
			delete(n.observers, id)
			if _, ok := n.activeObservers[id]; ok {
				delete(n.activeObservers, id)
				lostActive = true
			}
		}
	}
	for id, wp := range n.observed {
		if wp.Value() == nil {
			delete(n.observed, id)
		}
	}
	if lostActive {
		n.updateActive()
	}
}

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
	"container/heap"
	"context"
	"sync"

	"github.com/samber/lo"
)

// queueItem is a pending notifier call, keyed by (priority, seq) so that the
// drain pops leaves before dependents and schedulings of equal priority stay
// in arrival order.
type queueItem struct {
	priority int
	seq      uint64
	notifier *Notifier
}

type itemHeap []queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(queueItem)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Refresher drains pending notifier calls in priority order. Scheduling
// outside an open update transaction drains immediately; within one, calls
// accumulate and the drain runs once at the outermost exit.
type Refresher struct {
	mu                sync.Mutex
	queue             itemHeap
	seq               uint64
	updatesInProgress int
	running           bool
}

// NewRefresher creates an independent refresher. Most programs use the
// process-wide default implicitly through Notify; an explicit instance makes
// tests deterministic.
func NewRefresher() *Refresher {
	return &Refresher{}
}

var (
	defaultRefresherOnce sync.Once
	defaultRefresherInst *Refresher
)

// defaultRefresher returns the process-wide refresher, lazily constructed.
func defaultRefresher() *Refresher {
	defaultRefresherOnce.Do(func() {
		defaultRefresherInst = NewRefresher()
	})

	return defaultRefresherInst
}

// DefaultRefresher returns the process-wide refresher used by every notifier
// that was not bound to an explicit one.
func DefaultRefresher() *Refresher {
	return defaultRefresher()
}

// scheduleCall inserts a pending call for the notifier and drains unless a
// transaction is open.
func (r *Refresher) scheduleCall(n *Notifier) {
	r.mu.Lock()
	r.seq++
	heap.Push(&r.queue, queueItem{priority: n.priority, seq: r.seq, notifier: n})
	r.mu.Unlock()

	r.maybeRun()
}

// ForceRun drains the queue completely, regardless of open transactions.
func (r *Refresher) ForceRun() {
	r.forceRun(0, false)
}

// ForceRunMax drains the queue up to and including the given priority;
// higher-priority items stay pending.
func (r *Refresher) ForceRunMax(maxPriority int) {
	r.forceRun(maxPriority, true)
}

// maybeRun drains iff no transaction is open.
func (r *Refresher) maybeRun() {
	r.mu.Lock()
	open := r.updatesInProgress > 0
	r.mu.Unlock()

	if !open {
		r.forceRun(0, false)
	}
}

// forceRun pops items in (priority, seq) order. When the next item carries
// the same notifier as the current one, the current one is skipped: duplicate
// schedulings coalesce into a single call. A drain already in progress is
// never entered twice; items scheduled by a running callback are picked up by
// the outer loop, preserving priority order.
func (r *Refresher) forceRun(maxPriority int, bounded bool) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	for {
		r.mu.Lock()

		var item queueItem
		switch {
		case len(r.queue) > 0:
			item = heap.Pop(&r.queue).(queueItem)
		default:
			r.mu.Unlock()
			return
		}

		if bounded && item.priority > maxPriority {
			heap.Push(&r.queue, item)
			r.mu.Unlock()
			return
		}

		if len(r.queue) > 0 && r.queue[0].notifier == item.notifier {
			// Skip this one: the same notifier is up next anyway.
			r.mu.Unlock()
			continue
		}

		r.mu.Unlock()
		r.callNotifier(item.notifier)
	}
}

// callNotifier dispatches one pending call, trapping both error returns and
// panics from the update callback. Failures are recorded in the notifier's
// stats and reported through OnUnhandledError; the drain always continues.
func (r *Refresher) callNotifier(n *Notifier) {
	var err error
	lo.TryCatchWithErrorValue(
		func() error {
			err = n.call()
			return nil
		},
		func(e any) {
			err = recoverValueToError(e)
		},
	)

	n.lastErr = err
	if err != nil {
		OnUnhandledError(context.Background(), err)
	}
}

func (r *Refresher) beginTransaction() {
	r.mu.Lock()
	r.updatesInProgress++
	r.mu.Unlock()
}

func (r *Refresher) endTransaction() {
	r.mu.Lock()
	r.updatesInProgress--
	r.mu.Unlock()

	r.maybeRun()
}

// UpdateTransaction is a scoped batching region: while at least one is open
// on a refresher, scheduling does not drain. Transactions nest; the drain
// runs exactly once at the outermost Close, observing all mutations as a
// single batch.
type UpdateTransaction struct {
	refresher *Refresher
	closed    bool
}

// BeginUpdateTransaction opens a transaction on the process-wide refresher.
func BeginUpdateTransaction() *UpdateTransaction {
	return defaultRefresher().BeginUpdateTransaction()
}

// BeginUpdateTransaction opens a transaction on this refresher.
func (r *Refresher) BeginUpdateTransaction() *UpdateTransaction {
	r.beginTransaction()

	return &UpdateTransaction{refresher: r}
}

// Close exits the transaction. Closing the outermost open transaction drains
// the queue once. Close is idempotent.
func (t *UpdateTransaction) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.refresher.endTransaction()
}

// Transact runs fn inside an update transaction on the process-wide
// refresher.
func Transact(fn func()) {
	TransactOn(defaultRefresher(), fn)
}

// TransactOn runs fn inside an update transaction on the given refresher.
func TransactOn(r *Refresher, fn func()) {
	t := r.BeginUpdateTransaction()
	defer t.Close()

	fn()
}

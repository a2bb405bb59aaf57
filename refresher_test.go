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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefresherQueueEmptyAfterDrain(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := NewRefresher()
	n := NewNotifierWithRefresher(nil, r)
	n.AddObserver(ActiveNotifier())

	n.Notify()
	n.Notify()
	is.Equal(0, len(r.queue))
}

func TestRefresherBoundedDrainLeavesHigherPriorities(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := NewRefresher()
	calls1 := 0
	calls2 := 0
	n1 := NewNotifierWithRefresher(countingNotifyFunc(&calls1), r)
	n2 := NewNotifierWithRefresher(countingNotifyFunc(&calls2), r)
	n1.AddObserver(n2)
	n2.AddObserver(ActiveNotifier())

	tx := r.BeginUpdateTransaction()
	n1.Notify()
	n2.Notify()

	r.ForceRunMax(n1.Priority())
	is.Equal(1, calls1)
	is.Equal(0, calls2)

	r.ForceRun()
	is.Equal(1, calls1)
	is.Equal(1, calls2)

	tx.Close()
	is.Equal(1, calls1)
	is.Equal(1, calls2)
}

func TestRefresherTransactionsNest(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := NewRefresher()
	calls := 0
	n := NewNotifierWithRefresher(countingNotifyFunc(&calls), r)
	n.AddObserver(ActiveNotifier())

	outer := r.BeginUpdateTransaction()
	inner := r.BeginUpdateTransaction()
	n.Notify()
	inner.Close()
	is.Equal(0, calls)
	outer.Close()
	is.Equal(1, calls)
}

func TestRefresherTransactionCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := NewRefresher()
	calls := 0
	n := NewNotifierWithRefresher(countingNotifyFunc(&calls), r)
	n.AddObserver(ActiveNotifier())

	tx := r.BeginUpdateTransaction()
	tx.Close()
	tx.Close()

	// A balanced counter keeps draining immediate.
	n.Notify()
	is.Equal(1, calls)
}

func TestRefresherContinuesAfterCallbackError(t *testing.T) {
	is := assert.New(t)

	r := NewRefresher()
	calls2 := 0
	n1 := NewNotifierWithRefresher(func() (bool, error) {
		return true, assert.AnError
	}, r)
	n2 := NewNotifierWithRefresher(countingNotifyFunc(&calls2), r)
	n1.AddObserver(ActiveNotifier())
	n2.AddObserver(ActiveNotifier())

	var captured []error
	WithUnhandledErrors(t, func(ctx context.Context, err error) {
		captured = append(captured, err)
	}, func() {
		TransactOn(r, func() {
			n1.Notify()
			n2.Notify()
		})
	})

	is.Len(captured, 1)
	is.ErrorIs(n1.LastError(), assert.AnError)
	is.Equal(1, calls2)
}

func TestRefresherContinuesAfterCallbackPanic(t *testing.T) {
	is := assert.New(t)

	r := NewRefresher()
	calls2 := 0
	n1 := NewNotifierWithRefresher(func() (bool, error) {
		panic("boom")
	}, r)
	n2 := NewNotifierWithRefresher(countingNotifyFunc(&calls2), r)
	n1.AddObserver(ActiveNotifier())
	n2.AddObserver(ActiveNotifier())

	var captured []error
	WithUnhandledErrors(t, func(ctx context.Context, err error) {
		captured = append(captured, err)
	}, func() {
		TransactOn(r, func() {
			n1.Notify()
			n2.Notify()
		})
	})

	is.Len(captured, 1)
	is.EqualError(n1.LastError(), "boom")
	is.Equal(1, calls2)
}

func TestRefresherDuplicateSchedulingsCoalesce(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := NewRefresher()
	calls := 0
	n := NewNotifierWithRefresher(countingNotifyFunc(&calls), r)
	n.AddObserver(ActiveNotifier())

	TransactOn(r, func() {
		n.Notify()
		n.Notify()
		n.Notify()
	})
	is.Equal(1, calls)
}

func TestWaitForDrainsUpToPriority(t *testing.T) {
	is := assert.New(t)

	a := NewVarOf(1)
	downstream := 0
	observer := NewNotifier(countingNotifyFunc(&downstream))
	a.Notifier().AddObserver(observer)
	observer.AddObserver(ActiveNotifier())
	downstream = 0

	tx := BeginUpdateTransaction()
	defer tx.Close()

	a.Set(2)
	is.Equal(0, downstream)

	// Targeted flush: drains a's notifier, leaves the downstream pending.
	WaitFor(a)
	is.Equal(0, downstream)
	is.GreaterOrEqual(a.Notifier().Calls(), 1)

	Flush()
	is.Equal(1, downstream)
}

func TestDefaultRefresherIsProcessWide(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.Same(DefaultRefresher(), DefaultRefresher())
}

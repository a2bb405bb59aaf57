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
	"testing"

	"github.com/stretchr/testify/assert"
)

// countingObservable counts evaluations, for exercising the cache directly.
type countingObservable struct {
	notifier *Notifier
	evals    int
	value    any
	err      error
}

func newCountingObservable(value any) *countingObservable {
	return &countingObservable{notifier: NewNotifier(nil), value: value}
}

func (c *countingObservable) Notifier() *Notifier {
	return c.notifier
}

func (c *countingObservable) Eval() (any, error) {
	c.evals++
	if c.err != nil {
		return nil, c.err
	}

	return c.value, nil
}

func TestCacheCoalescesReads(t *testing.T) {
	is := assert.New(t)

	inner := newCountingObservable(1)
	cache := NewCache(inner)

	for range 3 {
		val, err := Ev(cache)
		is.NoError(err)
		is.Equal(1, val)
	}
	is.Equal(1, inner.evals)

	inner.value = 2
	inner.notifier.Notify()

	val, err := Ev(cache)
	is.NoError(err)
	is.Equal(2, val)
	is.Equal(2, inner.evals)
}

func TestCacheInvalidateForcesRecomputation(t *testing.T) {
	is := assert.New(t)

	inner := newCountingObservable(1)
	cache := NewCache(inner)

	_, err := Ev(cache)
	is.NoError(err)
	is.Equal(1, inner.evals)

	cache.Invalidate()
	_, err = Ev(cache)
	is.NoError(err)
	is.Equal(2, inner.evals)

	// No invalidation in between: zero further inner calls.
	_, err = Ev(cache)
	is.NoError(err)
	is.Equal(2, inner.evals)
}

func TestCacheCachesErrors(t *testing.T) {
	is := assert.New(t)

	inner := newCountingObservable(nil)
	inner.err = assert.AnError
	cache := NewCache(inner)

	_, err := cache.Eval()
	is.ErrorIs(err, assert.AnError)
	_, err = cache.Eval()
	is.ErrorIs(err, assert.AnError)
	is.Equal(1, inner.evals)

	inner.err = nil
	inner.value = 3
	inner.notifier.Notify()

	val, err := Ev(cache)
	is.NoError(err)
	is.Equal(3, val)
	is.Equal(2, inner.evals)
}

func TestCacheForwardsOnlyAfterRead(t *testing.T) {
	is := assert.New(t)

	inner := newCountingObservable(1)
	cache := NewCache(inner)

	downstream := 0
	observer := NewNotifier(countingNotifyFunc(&downstream))
	cache.Notifier().AddObserver(observer)
	observer.AddObserver(ActiveNotifier())

	// Prime the cache.
	_, err := Ev(cache)
	is.NoError(err)
	downstream = 0

	inner.notifier.Notify()
	is.Equal(1, downstream)

	// Nobody re-read since the last invalidation: not forwarded again.
	inner.notifier.Notify()
	is.Equal(1, downstream)

	_, err = Ev(cache)
	is.NoError(err)
	inner.notifier.Notify()
	is.Equal(2, downstream)
}

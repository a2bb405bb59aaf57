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

func TestVarNotInitialized(t *testing.T) {
	is := assert.New(t)

	v := NewVar[int]()
	_, err := v.Eval()
	is.ErrorIs(err, ErrNotInitialized)

	_, err = Ev(v)
	is.ErrorIs(err, ErrNotInitialized)
}

func TestVarAssignAndEval(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(2)

	val, err := Ev(v)
	is.NoError(err)
	is.Equal(2, val)

	is.NoError(v.Assign(6))
	val, err = Ev(v)
	is.NoError(err)
	is.Equal(6, val)

	typed, err := v.Value()
	is.NoError(err)
	is.Equal(6, typed)
}

func TestVarAssignWrongType(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(2)
	is.ErrorIs(v.Assign("nope"), ErrNotAssignable)
	is.ErrorIs(v.Assign(nil), ErrNotAssignable)

	// Cells of interface kind accept nil.
	a := NewVarOf[any](1)
	is.NoError(a.Assign(nil))
	val, err := Ev(a)
	is.NoError(err)
	is.Nil(val)
}

func TestVarFinalize(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(2)
	calls := 0
	observer := NewNotifier(countingNotifyFunc(&calls))
	observer.SetName("watcher")
	v.Notifier().AddObserver(observer)
	observer.AddObserver(ActiveNotifier())

	Finalize(v)
	_, err := v.Eval()
	is.ErrorIs(err, ErrFinalized)

	// Finalize emits no notification.
	is.Equal(0, calls)
}

func TestVarHoldsUncomparableValues(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf([]int{1, 2, 3})
	val, err := Ev(v)
	is.NoError(err)
	is.Equal([]int{1, 2, 3}, val)
}

func TestConstEvalAndFinalize(t *testing.T) {
	is := assert.New(t)

	c := NewConst(7)
	val, err := Ev(c)
	is.NoError(err)
	is.Equal(7, val)

	c.Finalize()
	_, err = c.Eval()
	is.ErrorIs(err, ErrFinalized)
}

func TestConstSharesInertNotifier(t *testing.T) {
	is := assert.New(t)

	c1 := NewConst(1)
	c2 := NewConst("two")
	is.Same(c1.Notifier(), c2.Notifier())
}

func TestIsObservable(t *testing.T) {
	is := assert.New(t)

	is.True(IsObservable(NewVarOf(1)))
	is.True(IsObservable(NewConst(1)))
	is.False(IsObservable(1))
	is.False(IsObservable(nil))
}

func TestAsObservable(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(1)
	is.Same(any(v), any(AsObservable(v)))

	wrapped := AsObservable(42)
	val, err := Ev(wrapped)
	is.NoError(err)
	is.Equal(42, val)
}

func TestProxyForwards(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(1)
	p := NewProxy(v)

	is.Same(v.Notifier(), p.Notifier())

	val, err := Ev(p)
	is.NoError(err)
	is.Equal(1, val)

	is.NoError(p.Assign(5))
	typed, err := v.Value()
	is.NoError(err)
	is.Equal(5, typed)

	p.Finalize()
	_, err = v.Eval()
	is.ErrorIs(err, ErrFinalized)
}

func TestProxyOverNonAssignable(t *testing.T) {
	is := assert.New(t)

	p := NewProxy(NewConst(1))
	is.ErrorIs(p.Assign(2), ErrNotAssignable)
}

func TestNotifiedProxyHasOwnNotifier(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(1)
	invalidations := 0
	p := NewNotifiedProxy(v, func() (bool, error) {
		invalidations++
		return false, nil
	})

	is.NotSame(v.Notifier(), p.Notifier())

	p.Notifier().AddObserver(ActiveNotifier())
	v.Set(2)
	is.Equal(1, invalidations)

	val, err := Ev(p)
	is.NoError(err)
	is.Equal(2, val)
}

func TestVarProxySwapsTarget(t *testing.T) {
	is := assert.New(t)

	a := NewVarOf(1)
	b := NewVarOf(10)
	p := NewVarProxy(a)

	val, err := Ev(p)
	is.NoError(err)
	is.Equal(1, val)

	p.SetInner(b)
	val, err = Ev(p)
	is.NoError(err)
	is.Equal(10, val)

	// The old target is fully detached: its changes no longer flow through.
	calls := 0
	observer := NewNotifier(countingNotifyFunc(&calls))
	p.Notifier().AddObserver(observer)
	observer.AddObserver(ActiveNotifier())
	calls = 0

	a.Set(2)
	is.Equal(0, calls)

	b.Set(20)
	is.Equal(1, calls)

	val, err = Ev(p)
	is.NoError(err)
	is.Equal(20, val)
}

func TestVarProxySwapNotifiesDownstream(t *testing.T) {
	is := assert.New(t)

	p := NewVarProxy(nil)
	calls := 0
	observer := NewNotifier(countingNotifyFunc(&calls))
	p.Notifier().AddObserver(observer)
	observer.AddObserver(ActiveNotifier())
	calls = 0

	p.SetInner(NewVarOf(3))
	is.Equal(1, calls)

	val, err := Ev(p)
	is.NoError(err)
	is.Equal(3, val)
}

func TestEvIdempotence(t *testing.T) {
	is := assert.New(t)

	inner := NewVarOf(5)
	outer := NewVarOf[any](inner)

	val, err := Ev(outer)
	is.NoError(err)
	is.Equal(5, val)

	// Ev of an already-unwrapped value is the value itself.
	again, err := Ev(val)
	is.NoError(err)
	is.Equal(val, again)
}

func TestEvAs(t *testing.T) {
	is := assert.New(t)

	v := NewVarOf(5)
	typed, err := EvAs[int](v)
	is.NoError(err)
	is.Equal(5, typed)

	_, err = EvAs[string](v)
	is.Error(err)
}

func TestEvDef(t *testing.T) {
	is := assert.New(t)

	v := NewVar[int]()
	is.Equal(-1, EvDef(v, -1))

	v.Set(3)
	is.Equal(3, EvDef(v, -1))
}

func TestMustEvPanicsOnError(t *testing.T) {
	is := assert.New(t)

	v := NewVar[int]()
	is.Panics(func() { MustEv(v) })

	v.Set(1)
	is.Equal(1, MustEv(v))
}

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
	"fmt"
)

// Observable is the unit of dataflow: anything exposing a notifier and an
// evaluation. The dataflow layer is untyped; typed cells coerce at the
// surface (see EvAs).
type Observable interface {
	// Notifier returns the node that fires whenever a computation that used
	// this observable should run again.
	Notifier() *Notifier
	// Eval returns the current value. The result may itself be observable;
	// Ev unwraps fully.
	Eval() (any, error)
}

// Assignable is an Observable whose value can be replaced.
type Assignable interface {
	Observable
	Assign(value any) error
}

// Finalizable is implemented by observables with a terminal lifecycle step.
// Var and Const fail later reads with ErrFinalized; CmCallResult releases
// its held acquisition (a later read acquires again); proxies and Cache
// forward to the inner node, and a valid Cache keeps returning its memoized
// value. No notification is emitted on finalize.
type Finalizable interface {
	Finalize()
}

// IsObservable reports whether v supports the observable capability set.
func IsObservable(v any) bool {
	_, ok := v.(Observable)
	return ok
}

// AsObservable returns v itself when observable, or wraps it in a Const.
func AsObservable(v any) Observable {
	if o, ok := v.(Observable); ok {
		return o
	}

	return NewConst(v)
}

// lifecycleSentinel marks the uninitialized and finalized states of a cell.
type lifecycleSentinel uint8

const (
	notInitialized lifecycleSentinel = iota + 1
	finalizedState
)

/************************
 *          Var         *
 ************************/

var (
	_ Observable  = (*Var[int])(nil)
	_ Assignable  = (*Var[int])(nil)
	_ Finalizable = (*Var[int])(nil)
)

// Var is a mutable cell. Reading it before the first assignment fails with
// ErrNotInitialized; assigning stores the value and notifies; Finalize puts
// the cell in a terminal state silently.
type Var[T any] struct {
	value    any // T, or a lifecycleSentinel
	notifier *Notifier
}

// NewVar creates an uninitialized mutable cell.
func NewVar[T any]() *Var[T] {
	v := &Var[T]{value: notInitialized, notifier: NewNotifier(nil)}
	v.notifier.SetName(fmt.Sprintf("Var[%T]", *new(T)))

	return v
}

// NewVarOf creates a mutable cell holding `value`.
func NewVarOf[T any](value T) *Var[T] {
	v := NewVar[T]()
	v.value = value

	return v
}

// Implements Observable.
func (v *Var[T]) Notifier() *Notifier {
	return v.notifier
}

// Implements Observable.
func (v *Var[T]) Eval() (any, error) {
	if s, ok := v.value.(lifecycleSentinel); ok {
		if s == notInitialized {
			return nil, ErrNotInitialized
		}
		return nil, ErrFinalized
	}

	return v.value, nil
}

// Value returns the typed current value.
func (v *Var[T]) Value() (T, error) {
	raw, err := v.Eval()
	if err != nil {
		var zero T
		return zero, err
	}

	// comma-ok: a nil held by an interface-kinded cell yields the zero T.
	typed, _ := raw.(T)

	return typed, nil
}

// Set stores a typed value and notifies.
func (v *Var[T]) Set(value T) {
	v.value = value
	v.notifier.Notify()
}

// Assign stores an untyped value and notifies. A value of the wrong dynamic
// type fails with ErrNotAssignable.
//
// Implements Assignable.
func (v *Var[T]) Assign(value any) error {
	var zero T

	if value == nil {
		// An untyped nil is a valid value only when the zero value of T is
		// itself nil (interface-kinded cells).
		if any(zero) != nil {
			return fmt.Errorf("%w: cannot assign nil to Var[%T]", ErrNotAssignable, zero)
		}
		v.Set(zero)

		return nil
	}

	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: cannot assign %T to Var[%T]", ErrNotAssignable, value, zero)
	}

	v.Set(typed)

	return nil
}

// Finalize puts the cell in its terminal state. Subsequent reads fail with
// ErrFinalized. No notification is emitted: the value must not be used
// anymore.
//
// Implements Finalizable.
func (v *Var[T]) Finalize() {
	v.value = finalizedState
}

/************************
 *         Const        *
 ************************/

var (
	_ Observable  = (*Const[int])(nil)
	_ Finalizable = (*Const[int])(nil)
)

// constNotifier is shared by every Const: priority 0, never active, every
// operation a no-op.
var constNotifier = newInertNotifier("const")

// Const is an immutable observable holding the same value for its whole
// lifetime.
type Const[T any] struct {
	value any // T, or finalizedState
}

// NewConst creates an immutable observable.
func NewConst[T any](value T) *Const[T] {
	return &Const[T]{value: value}
}

// Implements Observable.
func (c *Const[T]) Notifier() *Notifier {
	return constNotifier
}

// Implements Observable.
func (c *Const[T]) Eval() (any, error) {
	if _, ok := c.value.(lifecycleSentinel); ok {
		return nil, ErrFinalized
	}

	return c.value, nil
}

// Finalize drops the reference to the held value; useful when even a
// constant must release what it owns.
//
// Implements Finalizable.
func (c *Const[T]) Finalize() {
	c.value = finalizedState
}

/************************
 *         Proxy        *
 ************************/

var (
	_ Observable  = (*Proxy)(nil)
	_ Assignable  = (*Proxy)(nil)
	_ Finalizable = (*Proxy)(nil)
)

// Proxy forwards evaluation, assignment and finalization to another
// observable, sharing its notifier.
type Proxy struct {
	inner Observable
}

// NewProxy creates a forwarder around `inner`.
func NewProxy(inner Observable) *Proxy {
	return &Proxy{inner: inner}
}

// Inner returns the proxied observable.
func (p *Proxy) Inner() Observable {
	return p.inner
}

// Implements Observable.
func (p *Proxy) Notifier() *Notifier {
	return p.inner.Notifier()
}

// Implements Observable.
func (p *Proxy) Eval() (any, error) {
	return p.inner.Eval()
}

// Implements Assignable.
func (p *Proxy) Assign(value any) error {
	if a, ok := p.inner.(Assignable); ok {
		return a.Assign(value)
	}

	return ErrNotAssignable
}

// Implements Finalizable.
func (p *Proxy) Finalize() {
	if f, ok := p.inner.(Finalizable); ok {
		f.Finalize()
	}
}

/************************
 *     NotifiedProxy    *
 ************************/

var (
	_ Observable  = (*NotifiedProxy)(nil)
	_ Assignable  = (*NotifiedProxy)(nil)
	_ Finalizable = (*NotifiedProxy)(nil)
)

// NotifiedProxy is a Proxy with its own notifier observing the inner's, so
// it can be notified independently. The update hook decides whether inner
// changes are forwarded downstream; the default hook forwards nothing.
type NotifiedProxy struct {
	Proxy
	notifier *Notifier
}

// NewNotifiedProxy creates a proxy owning its own notifier, wired as an
// observer of the inner's notifier. A nil hook swallows notifications.
func NewNotifiedProxy(inner Observable, onNotify NotifyFunc) *NotifiedProxy {
	if onNotify == nil {
		onNotify = func() (bool, error) { return false, nil }
	}

	np := &NotifiedProxy{
		Proxy:    Proxy{inner: inner},
		notifier: NewNotifier(onNotify),
	}
	inner.Notifier().AddObserver(np.notifier)

	return np
}

// Implements Observable.
func (p *NotifiedProxy) Notifier() *Notifier {
	return p.notifier
}

/************************
 *       VarProxy       *
 ************************/

var (
	_ Observable  = (*VarProxy)(nil)
	_ Assignable  = (*VarProxy)(nil)
	_ Finalizable = (*VarProxy)(nil)
)

// VarProxy is a proxy whose target can be swapped. It notifies whenever the
// inner observable notifies or when the target is replaced. Reassignment is
// atomic with respect to downstream evaluation: a read sees either the old
// or the new linkage, never a mix.
type VarProxy struct {
	*NotifiedProxy
}

// NewVarProxy creates a swappable proxy. A nil inner starts the proxy over a
// nil constant.
func NewVarProxy(inner Observable) *VarProxy {
	if inner == nil {
		inner = NewConst[any](nil)
	}

	p := &VarProxy{
		NotifiedProxy: NewNotifiedProxy(inner, nil),
	}
	// Inner changes flow through to downstream observers.
	p.notifier.notifyFunc = func() (bool, error) { return true, nil }
	p.notifier.SetName("VarProxy")

	return p
}

// SetInner swaps the proxied target: detach from the old target, attach to
// the new one, then notify downstream.
func (p *VarProxy) SetInner(inner Observable) {
	p.inner.Notifier().RemoveObserver(p.notifier)
	p.inner = inner
	inner.Notifier().AddObserver(p.notifier)
	p.notifier.Notify()
}

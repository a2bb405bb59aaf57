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
	"slices"

	"github.com/samber/sf/internal/xstack"
)

// BodyFunc is the body of a synchronous reactive function. It receives the
// evaluated arguments in declaration order, dep-only arguments removed.
type BodyFunc func(args []any) (any, error)

// CmBodyFunc is the body of a scoped-acquisition reactive function: it
// returns the entered value plus the Teardown releasing whatever was
// acquired.
type CmBodyFunc func(args []any) (any, Teardown, error)

// Params configures how a reactive function binds and subscribes its
// arguments.
type Params struct {
	// ArgNames declares the positional argument names. When set, arity is
	// enforced and the role sets below may refer to arguments by name.
	ArgNames []string

	// PassArgs names arguments passed through as observables: not evaluated
	// before the call and not subscribed as dependencies. The body evaluates
	// them explicitly.
	PassArgs []string

	// PassIndexes is the positional form of PassArgs.
	PassIndexes []int

	// DepOnlyArgs names arguments that are removed before the call and only
	// used as dependencies: the value (or each element of an []any) is
	// subscribed to. Useful for forcing recomputation on a sentinel.
	DepOnlyArgs []string

	// OtherDeps are additional dependency sources (observables or bare
	// notifiers) subscribed beyond the function's arguments.
	OtherDeps []any
}

type reactiveKind uint8

const (
	kindSync reactiveKind = iota
	kindCm
	kindAsync
)

// ReactiveFunc lifts an ordinary function into the dataflow world. Calling
// it with at least one observable argument produces an observable result
// that recomputes when any input changes; calling it with plain values just
// calls the function.
type ReactiveFunc struct {
	name   string
	kind   reactiveKind
	body   BodyFunc
	cmBody CmBodyFunc
	params Params

	// When set, observable results are wrapped to stay eagerly evaluated.
	volatileResults bool
}

// NewReactiveFunc lifts a synchronous function.
func NewReactiveFunc(name string, body BodyFunc) *ReactiveFunc {
	return NewReactiveFuncWithParams(name, body, Params{})
}

// NewReactiveFuncWithParams lifts a synchronous function with explicit
// binding configuration.
func NewReactiveFuncWithParams(name string, body BodyFunc, params Params) *ReactiveFunc {
	return &ReactiveFunc{
		name:   name,
		kind:   kindSync,
		body:   body,
		params: params,
	}
}

// NewReactiveCmFunc lifts a scoped-acquisition function: its body returns a
// value together with the Teardown releasing it. The previous acquisition is
// released when the result is re-evaluated after an input change and on
// finalization.
func NewReactiveCmFunc(name string, body CmBodyFunc) *ReactiveFunc {
	return NewReactiveCmFuncWithParams(name, body, Params{})
}

// NewReactiveCmFuncWithParams lifts a scoped-acquisition function with
// explicit binding configuration.
func NewReactiveCmFuncWithParams(name string, body CmBodyFunc, params Params) *ReactiveFunc {
	return &ReactiveFunc{
		name:   name,
		kind:   kindCm,
		cmBody: body,
		params: params,
	}
}

// NewReactiveAsyncFunc reserves the coroutine flavor. Calls fail with
// ErrAsyncNotSupported.
func NewReactiveAsyncFunc(name string, body BodyFunc) *ReactiveFunc {
	return &ReactiveFunc{
		name:   name,
		kind:   kindAsync,
		body:   body,
		params: Params{},
	}
}

// Name returns the function's diagnostic name.
func (f *ReactiveFunc) Name() string {
	return f.name
}

// Volatile returns a variant of the function whose observable results are
// kept eagerly evaluated (see Volatile).
func (f *ReactiveFunc) Volatile() *ReactiveFunc {
	clone := *f
	clone.volatileResults = true

	return &clone
}

// Call invokes the reactive function. When no bound argument is observable,
// a synchronous body runs immediately and its raw result is returned: the
// lifted function behaves like the plain one. Otherwise, and always for
// scoped-acquisition functions, a lazy call-result node is built, subscribed
// to every dependency, wrapped in a Cache and returned as an Observable.
func (f *ReactiveFunc) Call(args ...any) (any, error) {
	if f.kind == kindAsync {
		return nil, ErrAsyncNotSupported
	}

	records, err := f.bind(args)
	if err != nil {
		return nil, err
	}

	// Scoped-acquisition functions always produce a managed node: the
	// acquisition lifecycle needs an owner even when every input is plain.
	if f.kind != kindCm && !argsNeedReaction(records) {
		return f.callDirect(records)
	}

	callStack := xstack.Capture(1)

	var inner Observable
	switch f.kind {
	case kindCm:
		inner = newCmCallResult(f, records, callStack)
	default:
		inner = newSyncCallResult(f, records, callStack)
	}

	var result Observable = NewCache(inner)
	if f.volatileResults {
		result = Volatile(result)
	}

	return result, nil
}

// bind resolves positional arguments against the declared names and builds
// the argument records iterated on every evaluation.
func (f *ReactiveFunc) bind(args []any) ([]argRecord, error) {
	if len(f.params.ArgNames) > 0 && len(args) != len(f.params.ArgNames) {
		return nil, fmt.Errorf("sf: '%s' expects %d arguments, got %d", f.name, len(f.params.ArgNames), len(args))
	}

	records := make([]argRecord, 0, len(args))
	for i, arg := range args {
		name := ""
		if i < len(f.params.ArgNames) {
			name = f.params.ArgNames[i]
		}

		role := ArgNormal
		switch {
		case name != "" && slices.Contains(f.params.DepOnlyArgs, name):
			role = ArgDepOnly
		case slices.Contains(f.params.PassIndexes, i),
			name != "" && slices.Contains(f.params.PassArgs, name):
			role = ArgPassThrough
		}

		records = append(records, argRecord{index: i, name: name, value: arg, role: role})
	}

	return records, nil
}

// callDirect runs the body immediately on plain values. Dep-only arguments
// are dropped exactly as on the reactive path.
func (f *ReactiveFunc) callDirect(records []argRecord) (any, error) {
	args := make([]any, 0, len(records))
	for _, rec := range records {
		if rec.role == ArgDepOnly {
			continue
		}
		args = append(args, rec.value)
	}

	return f.body(args)
}

func argsNeedReaction(records []argRecord) bool {
	for _, rec := range records {
		if IsObservable(rec.value) {
			return true
		}
	}

	return false
}

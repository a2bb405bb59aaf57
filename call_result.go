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
	"fmt"

	"github.com/samber/lo"

	"github.com/samber/sf/internal/xstack"
)

// Teardown releases a scoped acquisition produced by a reactive
// context-manager function. It is called before every re-entry (the next
// evaluation after an input changed) and when the call result is finalized;
// an input change that is never followed by a read does not release it.
type Teardown func() error

// ArgRole classifies how a bound argument participates in a reactive call.
type ArgRole uint8

const (
	// ArgNormal arguments are evaluated before the call and subscribed to.
	ArgNormal ArgRole = iota
	// ArgPassThrough arguments reach the body untouched and are not
	// subscribed; the body evaluates them explicitly.
	ArgPassThrough
	// ArgDepOnly arguments are removed before the call and only subscribed
	// to, element-wise for slices.
	ArgDepOnly
)

// argRecord is one bound argument: built once at call-result construction,
// iterated on every evaluation.
type argRecord struct {
	index int
	name  string
	value any
	role  ArgRole
}

func (a argRecord) label() string {
	if a.name != "" {
		return a.name
	}

	return fmt.Sprintf("%d", a.index)
}

// observeDependency subscribes the notifier to a dependency source: an
// observable, or a bare notifier.
func observeDependency(v any, observer *Notifier) {
	switch d := v.(type) {
	case *Notifier:
		d.AddObserver(observer)
	case Observable:
		d.Notifier().AddObserver(observer)
	}
}

// callResult is the common state of a lazy reactive invocation. It strongly
// owns the bound argument values; the weak neighbor sets stay populated for
// as long as the call result itself is retained.
type callResult struct {
	fn       *ReactiveFunc
	args     []argRecord
	notifier *Notifier

	// Call site captured at construction, for error messages.
	callStack xstack.Stack

	// Re-entry guard: a call result that evaluates itself is a user-built
	// cycle.
	updateInProgress bool
}

func newCallResult(fn *ReactiveFunc, args []argRecord, callStack xstack.Stack) callResult {
	cr := callResult{
		fn:        fn,
		args:      args,
		notifier:  NewNotifier(nil),
		callStack: callStack,
	}
	cr.notifier.SetName("CallResult of " + fn.name)

	for _, rec := range args {
		switch rec.role {
		case ArgDepOnly:
			if items, ok := rec.value.([]any); ok {
				for _, item := range items {
					observeDependency(item, cr.notifier)
				}
			} else {
				observeDependency(rec.value, cr.notifier)
			}
		case ArgNormal:
			if IsObservable(rec.value) {
				observeDependency(rec.value, cr.notifier)
			}
		case ArgPassThrough:
			// not subscribed; the body decides what it depends on
		}
	}

	for _, dep := range fn.params.OtherDeps {
		observeDependency(dep, cr.notifier)
	}

	return cr
}

func (cr *callResult) Notifier() *Notifier {
	return cr.notifier
}

// begin enters the evaluation, failing on re-entry.
func (cr *callResult) begin() error {
	if cr.updateInProgress {
		return newCircularDependencyError(cr.fn.name, cr.callStack)
	}
	cr.updateInProgress = true

	return nil
}

func (cr *callResult) end() {
	cr.updateInProgress = false
}

// evalArgs produces the values handed to the body: pass-through arguments
// raw, dep-only arguments dropped, everything else fully unwrapped. A
// failing argument becomes an ArgEvalError naming it and the call site.
func (cr *callResult) evalArgs() ([]any, error) {
	out := make([]any, 0, len(cr.args))
	for _, rec := range cr.args {
		switch rec.role {
		case ArgDepOnly:
			continue
		case ArgPassThrough:
			out = append(out, rec.value)
		default:
			val, err := Ev(rec.value)
			if err != nil {
				cause := err
				if evErr, ok := err.(*EvalError); ok {
					cause = evErr.Unwrap()
				}
				return nil, newArgEvalError(rec.label(), cr.fn.name, cr.callStack, cause)
			}
			out = append(out, val)
		}
	}

	return out, nil
}

/************************
 *    SyncCallResult    *
 ************************/

var _ Observable = (*SyncCallResult)(nil)

// SyncCallResult is the observable produced by calling a synchronous
// reactive function on observable inputs.
type SyncCallResult struct {
	callResult
}

func newSyncCallResult(fn *ReactiveFunc, args []argRecord, callStack xstack.Stack) *SyncCallResult {
	return &SyncCallResult{callResult: newCallResult(fn, args, callStack)}
}

// Implements Observable.
func (cr *SyncCallResult) Eval() (any, error) {
	if err := cr.begin(); err != nil {
		return nil, err
	}
	defer cr.end()

	args, err := cr.evalArgs()
	if err != nil {
		return nil, err
	}

	var result any
	lo.TryCatchWithErrorValue(
		func() error {
			result, err = cr.fn.body(args)
			return nil
		},
		func(e any) {
			err = recoverValueToError(e)
		},
	)
	if err != nil {
		return nil, newBodyEvalError(cr.fn.name, cr.callStack, err)
	}

	return result, nil
}

/************************
 *     CmCallResult     *
 ************************/

var (
	_ Observable  = (*CmCallResult)(nil)
	_ Finalizable = (*CmCallResult)(nil)
)

// CmCallResult is the observable produced by calling a scoped-acquisition
// reactive function: the body yields a value plus a Teardown, and the
// previous acquisition is released before every re-entry. Release failures
// are suppressed and reported through OnReleasedResourceError only.
type CmCallResult struct {
	callResult

	teardown Teardown
}

func newCmCallResult(fn *ReactiveFunc, args []argRecord, callStack xstack.Stack) *CmCallResult {
	return &CmCallResult{callResult: newCallResult(fn, args, callStack)}
}

// Implements Observable.
func (cr *CmCallResult) Eval() (any, error) {
	if err := cr.begin(); err != nil {
		return nil, err
	}
	defer cr.end()

	cr.release()

	args, err := cr.evalArgs()
	if err != nil {
		return nil, err
	}

	var value any
	var teardown Teardown
	lo.TryCatchWithErrorValue(
		func() error {
			value, teardown, err = cr.fn.cmBody(args)
			return nil
		},
		func(e any) {
			err = recoverValueToError(e)
		},
	)
	if err != nil {
		return nil, newBodyEvalError(cr.fn.name, cr.callStack, err)
	}

	cr.teardown = teardown

	return value, nil
}

// release runs and clears the held teardown, if any.
func (cr *CmCallResult) release() {
	if cr.teardown == nil {
		return
	}

	teardown := cr.teardown
	cr.teardown = nil

	var err error
	lo.TryCatchWithErrorValue(
		func() error {
			err = teardown()
			return nil
		},
		func(e any) {
			err = recoverValueToError(e)
		},
	)
	if err != nil {
		OnReleasedResourceError(context.Background(), err)
	}
}

// Finalize releases the held acquisition, if any.
//
// Implements Finalizable.
func (cr *CmCallResult) Finalize() {
	cr.release()
}

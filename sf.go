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

// Package sf is a pull-based reactive dataflow runtime: a library for
// declaring values that automatically recompute when their inputs change.
//
// A program builds a graph of observables: mutable cells (Var), constants
// (Const), derived nodes produced by lifting ordinary functions
// (ReactiveFunc), and proxies that reflect or cache another observable.
// Reading an observable with Ev yields its current value; assigning to a
// cell propagates change notifications through the graph so that dependents
// recompute lazily on demand, or eagerly when made volatile.
//
// The runtime is single-threaded and cooperative. It is not safe for
// concurrent mutation from multiple goroutines; all mutation, scheduling
// and draining must happen on one goroutine.
package sf

import (
	"context"
	"log"
	"sync/atomic"
)

var (
	// onUnhandledError stores the current handler for evaluation errors that
	// surface outside any read: failing notifier callbacks during a drain and
	// failing eager (volatile) re-evaluations. It is accessed via
	// atomic.Value to allow concurrent readers and writers without data races.
	onUnhandledError atomic.Value // func(context.Context, error)

	// onReleasedResourceError stores the current handler for failures while
	// releasing a scoped acquisition held by a reactive call result. Release
	// failures are suppressed; this hook is the only place they surface.
	onReleasedResourceError atomic.Value // func(context.Context, error)
)

func init() {
	onUnhandledError.Store(DefaultOnUnhandledError)
	onReleasedResourceError.Store(DefaultOnReleasedResourceError)
}

// SetOnUnhandledError sets the handler that will be invoked when an
// evaluation error surfaces outside any read. Passing nil restores the
// default.
func SetOnUnhandledError(fn func(ctx context.Context, err error)) {
	if fn == nil {
		fn = DefaultOnUnhandledError
	}
	onUnhandledError.Store(fn)
}

// GetOnUnhandledError returns the currently configured unhandled-error handler.
func GetOnUnhandledError() func(ctx context.Context, err error) {
	return onUnhandledError.Load().(func(context.Context, error))
}

// OnUnhandledError calls the currently configured unhandled-error handler.
func OnUnhandledError(ctx context.Context, err error) {
	GetOnUnhandledError()(ctx, err)
}

// SetOnReleasedResourceError sets the handler invoked when releasing a
// scoped acquisition fails. Passing nil restores the default.
func SetOnReleasedResourceError(fn func(ctx context.Context, err error)) {
	if fn == nil {
		fn = DefaultOnReleasedResourceError
	}
	onReleasedResourceError.Store(fn)
}

// GetOnReleasedResourceError returns the currently configured
// released-resource handler.
func GetOnReleasedResourceError() func(ctx context.Context, err error) {
	return onReleasedResourceError.Load().(func(context.Context, error))
}

// OnReleasedResourceError calls the currently configured released-resource
// handler.
func OnReleasedResourceError(ctx context.Context, err error) {
	GetOnReleasedResourceError()(ctx, err)
}

// IgnoreOnUnhandledError drops unhandled errors silently.
func IgnoreOnUnhandledError(ctx context.Context, err error) {}

// IgnoreOnReleasedResourceError drops release failures silently.
func IgnoreOnReleasedResourceError(ctx context.Context, err error) {}

// DefaultOnUnhandledError is the default implementation of `OnUnhandledError`.
func DefaultOnUnhandledError(ctx context.Context, err error) {
	if err != nil {
		// bearer:disable go_lang_logger_leak
		log.Printf("samber/sf: unhandled error: %s\n", err.Error())
	}
}

// DefaultOnReleasedResourceError is the default implementation of
// `OnReleasedResourceError`.
func DefaultOnReleasedResourceError(ctx context.Context, err error) {
	if err != nil {
		// bearer:disable go_lang_logger_leak
		log.Printf("samber/sf: ignoring error in cleanup: %s\n", err.Error())
	}
}

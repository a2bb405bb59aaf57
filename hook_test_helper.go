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
	"sync"
	"testing"
)

// hookMu serializes test-time overrides of the package-level handler hooks
// so concurrent tests do not observe each other's handlers.
var hookMu sync.Mutex

// WithUnhandledErrors temporarily replaces the unhandled-error hook with a
// collector while executing fn, then restores the previous handler.
func WithUnhandledErrors(t *testing.T, handler func(ctx context.Context, err error), fn func()) {
	t.Helper()

	hookMu.Lock()
	prev := GetOnUnhandledError()
	SetOnUnhandledError(handler)

	// Ensure restore and unlock even if fn panics.
	defer func() {
		SetOnUnhandledError(prev)
		hookMu.Unlock()
	}()

	fn()
}

// WithReleasedResourceErrors temporarily replaces the released-resource hook
// with a collector while executing fn, then restores the previous handler.
func WithReleasedResourceErrors(t *testing.T, handler func(ctx context.Context, err error), fn func()) {
	t.Helper()

	hookMu.Lock()
	prev := GetOnReleasedResourceError()
	SetOnReleasedResourceError(handler)

	defer func() {
		SetOnReleasedResourceError(prev)
		hookMu.Unlock()
	}()

	fn()
}

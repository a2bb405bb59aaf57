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
)

var (
	_ Observable  = (*VolatileProxy)(nil)
	_ Finalizable = (*VolatileProxy)(nil)
)

// VolatileProxy keeps a node eagerly evaluated: its notifier is observed by
// the ActiveNotifier sentinel, which turns the whole upstream chain active,
// and its update hook re-evaluates the inner value on every change. A value
// behind a volatile proxy is therefore always fresh; evaluation failures are
// recorded in the notifier stats and reported through OnUnhandledError, not
// propagated.
type VolatileProxy struct {
	*NotifiedProxy
}

// Volatile wraps an observable so it is kept fresh eagerly.
func Volatile(inner Observable) *VolatileProxy {
	p := &VolatileProxy{
		NotifiedProxy: NewNotifiedProxy(inner, func() (bool, error) {
			_, err := Ev(inner)
			return false, err
		}),
	}
	p.notifier.SetName("Volatile")
	p.notifier.AddObserver(activeNotifierSingleton)

	// Evaluate once eagerly; the subscription above keeps it fresh from here.
	if _, err := Ev(inner); err != nil {
		p.notifier.lastErr = err
		OnUnhandledError(context.Background(), err)
	}

	return p
}

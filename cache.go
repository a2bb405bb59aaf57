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
	"github.com/samber/lo"
)

var (
	_ Observable  = (*Cache)(nil)
	_ Finalizable = (*Cache)(nil)
)

// Cache memoizes the value of the inner observable between invalidations:
// many reads cost exactly one inner evaluation. Failures are cached too and
// re-returned without re-invoking the inner node. Downstream observers are
// re-notified only when a fresh value had actually been read since the last
// invalidation, so nodes that only care about change are not spammed with
// intermediate states.
type Cache struct {
	inner    Observable
	notifier *Notifier

	valid       bool
	cachedValue any
	cachedErr   error
}

// NewCache creates a memoizing node over `inner`.
func NewCache(inner Observable) *Cache {
	c := &Cache{inner: inner}
	c.notifier = NewNotifier(c.invalidate)
	c.notifier.SetName("Cache")
	inner.Notifier().AddObserver(c.notifier)

	return c
}

// invalidate is the update hook: an already-invalid cache swallows the
// notification, since nobody requested a value since the last one.
func (c *Cache) invalidate() (bool, error) {
	if !c.valid {
		return false, nil
	}
	c.valid = false

	return true, nil
}

// Invalidate drops the memoized value so the next read re-evaluates.
func (c *Cache) Invalidate() {
	c.valid = false
}

// Implements Observable.
func (c *Cache) Notifier() *Notifier {
	return c.notifier
}

// Implements Observable.
func (c *Cache) Eval() (any, error) {
	if !c.valid {
		c.refill()
	}

	if c.cachedErr != nil {
		return nil, c.cachedErr
	}

	return c.cachedValue, nil
}

func (c *Cache) refill() {
	var value any
	var err error
	lo.TryCatchWithErrorValue(
		func() error {
			value, err = c.inner.Eval()
			return nil
		},
		func(e any) {
			err = recoverValueToError(e)
		},
	)

	if err != nil {
		c.cachedValue = nil
		c.cachedErr = err
	} else {
		c.cachedValue = value
		c.cachedErr = nil
	}
	c.valid = true
}

// Implements Finalizable.
func (c *Cache) Finalize() {
	if f, ok := c.inner.(Finalizable); ok {
		f.Finalize()
	}
}

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

	"github.com/samber/lo"
)

// evalOne takes one unwrap step: drain pending work for the target, then
// evaluate it. Argument and body failures collapse into a single EvalError
// whose cause chain retains the full trail.
func evalOne(o Observable) (any, error) {
	o.Notifier().Refresh()

	val, err := o.Eval()
	if err != nil {
		switch err.(type) {
		case *ArgEvalError, *BodyEvalError:
			return nil, newEvalError(err)
		}
		return nil, err
	}

	return val, nil
}

// Ev returns the fully unwrapped raw value of v: while v is observable, it
// drains pending work up to v and evaluates it, then repeats on the result.
// Non-observable values are returned as-is, so Ev is idempotent.
func Ev(v any) (any, error) {
	for IsObservable(v) {
		val, err := evalOne(v.(Observable))
		if err != nil {
			return nil, err
		}
		v = val
	}

	return v, nil
}

// EvAs returns the fully unwrapped value of v coerced to T.
func EvAs[T any](v any) (T, error) {
	var zero T

	val, err := Ev(v)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("sf: cannot convert value of type %T to %T", val, zero)
	}

	return typed, nil
}

// MustEv is Ev, panicking on error.
func MustEv(v any) any {
	return lo.Must(Ev(v))
}

// EvException evaluates v and returns the error it would fail with, or nil.
func EvException(v any) error {
	_, err := Ev(v)
	return err
}

// EvDef evaluates v and returns `def` instead of failing.
func EvDef(v any, def any) any {
	val, err := Ev(v)
	if err != nil {
		return def
	}

	return val
}

// Assign replaces the value of an assignable observable.
func Assign(target Assignable, value any) error {
	return target.Assign(value)
}

// Finalize puts v in its terminal state when it supports finalization.
func Finalize(v any) {
	if f, ok := v.(Finalizable); ok {
		f.Finalize()
	}
}

// WaitFor drains pending notifier calls up to v's priority: a targeted
// flush. A nil v drains everything.
func WaitFor(v Observable) {
	if v == nil {
		Flush()
		return
	}

	n := v.Notifier()
	n.sched().ForceRunMax(n.Priority())
}

// Flush drains every pending notifier call on the process-wide refresher.
func Flush() {
	defaultRefresher().ForceRun()
}

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
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// SetIfChanged assigns `value` to the target only when it differs from the
// current value (deep comparison). An uninitialized target is always
// assigned.
func SetIfChanged(target Assignable, value any) error {
	current, err := target.Eval()
	if err == nil && reflect.DeepEqual(current, value) {
		return nil
	}
	if err != nil && !errors.Is(err, ErrNotInitialized) {
		return err
	}

	return target.Assign(value)
}

// BindVars keeps a group of assignable cells equal: whenever one changes,
// the others are assigned its value. The returned handles must be retained
// for the binding to stay alive (they are volatile nodes; dropping them
// unwires the binding).
func BindVars(vars ...Assignable) ([]Observable, error) {
	setAll := NewReactiveFuncWithParams("bind_vars", func(args []any) (any, error) {
		value := args[0]
		for _, v := range vars {
			if err := SetIfChanged(v, value); err != nil {
				return nil, err
			}
		}

		return value, nil
	}, Params{ArgNames: []string{"value"}})

	handles := make([]Observable, 0, len(vars))
	for _, v := range vars {
		res, err := setAll.Call(v)
		if err != nil {
			return nil, err
		}
		handles = append(handles, Volatile(res.(Observable)))
	}

	return handles, nil
}

var notNilFunc = NewReactiveFuncWithParams("not_nil", func(args []any) (any, error) {
	if args[0] == nil {
		return nil, NewValidationError("should not be nil")
	}

	return args[0], nil
}, Params{ArgNames: []string{"arg"}})

// NotNil lifts a value through a nil check: the result fails with a
// ValidationError while the input evaluates to nil.
func NotNil(v any) (any, error) {
	return notNilFunc.Call(v)
}

var validateFunc = NewReactiveFuncWithParams("validate", func(args []any) (any, error) {
	arg := args[0]
	isValid := args[1].(func(any) bool)
	description := args[2].(string)

	if !isValid(arg) {
		return nil, NewValidationError(fmt.Sprintf(description, arg))
	}

	return arg, nil
}, Params{ArgNames: []string{"arg", "is_valid", "description"}})

// Validate lifts a value through an arbitrary precondition. `description`
// is a format string receiving the offending value.
func Validate(v any, isValid func(any) bool, description string) (any, error) {
	if description == "" {
		description = "'%v' does not satisfy the condition"
	}

	return validateFunc.Call(v, isValid, description)
}

// InRange lifts a value through a bounds check: the result fails with a
// ValidationError while the input is outside [low, high] or not a T.
func InRange[T constraints.Ordered](v any, low T, high T) (any, error) {
	rf := NewReactiveFuncWithParams("in_range", func(args []any) (any, error) {
		val, ok := args[0].(T)
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("'%v' is not a %T", args[0], *new(T)))
		}
		if val < low || val > high {
			return nil, NewValidationError(fmt.Sprintf("'%v' is out of range [%v, %v]", val, low, high))
		}

		return val, nil
	}, Params{ArgNames: []string{"arg"}})

	return rf.Call(v)
}

var makeSliceFunc = NewReactiveFunc("make_slice", func(args []any) (any, error) {
	return slices.Clone(args), nil
})

// MakeSlice lifts a group of values into a reactive []any that recomputes
// when any observable element changes.
func MakeSlice(args ...any) (any, error) {
	return makeSliceFunc.Call(args...)
}

// MakeMap lifts a map with possibly-observable values into a reactive
// map[string]any that recomputes when any value changes.
func MakeMap(m map[string]any) (any, error) {
	keys := lo.Keys(m)
	slices.Sort(keys)
	values := lo.Map(keys, func(k string, _ int) any { return m[k] })

	rf := NewReactiveFunc("make_map", func(args []any) (any, error) {
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k] = args[i]
		}

		return out, nil
	})

	return rf.Call(values...)
}

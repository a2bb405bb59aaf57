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

	"github.com/samber/sf/internal/xstack"
)

var (
	// ErrNotInitialized is returned when reading a Var before its first
	// assignment.
	ErrNotInitialized = errors.New("not initialized")

	// ErrFinalized is returned when reading an observable after Finalize.
	ErrFinalized = errors.New("observable cannot be read once finalized")

	// ErrNotAssignable is returned by Assign on an observable that does not
	// support assignment, or when the assigned value has the wrong dynamic
	// type for a typed cell.
	ErrNotAssignable = errors.New("observable is not assignable")

	// ErrAsyncNotSupported is returned by the reserved async reactive
	// function entry points.
	ErrAsyncNotSupported = errors.New("async reactive functions are not supported yet")
)

// ValidationError signals that an argument does not satisfy a precondition,
// so the reactive function refuses to produce a value. It propagates like
// any other body error.
type ValidationError struct {
	Description string
}

// NewValidationError creates a new ValidationError with the given description.
func NewValidationError(description string) *ValidationError {
	return &ValidationError{Description: description}
}

func (e *ValidationError) Error() string {
	return e.Description
}

// ArgEvalError reports a failure while evaluating an input of a reactive
// call. The failure of the argument itself is the cause.
type ArgEvalError struct {
	ArgName      string
	FunctionName string
	CallStack    xstack.Stack

	cause error
}

func newArgEvalError(argName string, functionName string, callStack xstack.Stack, cause error) *ArgEvalError {
	return &ArgEvalError{
		ArgName:      argName,
		FunctionName: functionName,
		CallStack:    callStack,
		cause:        cause,
	}
}

func (e *ArgEvalError) Error() string {
	return fmt.Sprintf("while evaluating argument '%s' of '%s' called at (most recent call first):\n%s", e.ArgName, e.FunctionName, e.CallStack)
}

func (e *ArgEvalError) Unwrap() error {
	return e.cause
}

// BodyEvalError reports a failure inside a reactive function's body. The
// body failure (an error return or a trapped panic) is the cause.
type BodyEvalError struct {
	FunctionName string
	CallStack    xstack.Stack

	cause error
}

func newBodyEvalError(functionName string, callStack xstack.Stack, cause error) *BodyEvalError {
	return &BodyEvalError{
		FunctionName: functionName,
		CallStack:    callStack,
		cause:        cause,
	}
}

func (e *BodyEvalError) Error() string {
	return fmt.Sprintf("while evaluating body of '%s' called at (most recent call first):\n%s", e.FunctionName, e.CallStack)
}

func (e *BodyEvalError) Unwrap() error {
	return e.cause
}

// EvalError is the single error kind surfaced by Ev. It collapses the deep
// propagation chain into one error whose cause chain retains the
// ArgEvalError/BodyEvalError trail down to the originating fault.
type EvalError struct {
	cause error
}

func newEvalError(cause error) *EvalError {
	return &EvalError{cause: cause}
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation failed: %s", e.cause.Error())
}

func (e *EvalError) Unwrap() error {
	return e.cause
}

// CircularDependencyError reports a reactive call that re-entered its own
// evaluation.
type CircularDependencyError struct {
	FunctionName string
	CallStack    xstack.Stack
}

func newCircularDependencyError(functionName string, callStack xstack.Stack) *CircularDependencyError {
	return &CircularDependencyError{
		FunctionName: functionName,
		CallStack:    callStack,
	}
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency containing '%s' called at (most recent call first):\n%s", e.FunctionName, e.CallStack)
}

// recoverValueToError converts a value recovered from a panic into an error.
func recoverValueToError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}

	return fmt.Errorf("%v", v)
}

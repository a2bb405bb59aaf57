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

package xstack

import (
	"fmt"
	"runtime"
	"strings"
)

const maxDepth = 32

// Stack is a captured call site: the program counters of the frames that
// were live when Capture was called.
type Stack []uintptr

// Capture records the call stack of the caller. `skip` is the number of
// additional frames to omit, with 0 identifying the caller of Capture.
func Capture(skip int) Stack {
	pcs := make([]uintptr, maxDepth)
	// +2 skips runtime.Callers and Capture itself.
	n := runtime.Callers(skip+2, pcs)
	return Stack(pcs[:n])
}

// String renders the stack as one "file:line (function)" entry per line,
// most recent call first.
func (s Stack) String() string {
	if len(s) == 0 {
		return "  (no stack)"
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(s)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "  %s:%d (%s)\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

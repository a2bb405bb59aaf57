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

package xtime

import (
	"time"
)

// Measuring with time.Since on a fixed start time stays on the monotonic
// clock and avoids a wall-clock time.Now() call per sample.
var startTime = time.Now()

// NowNanoMonotonic returns a monotonic timestamp in nanoseconds, suitable
// for cheap duration measurements on hot paths.
func NowNanoMonotonic() int64 {
	return time.Since(startTime).Nanoseconds()
}

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
	"io"
	"slices"
)

// DumpDot writes the dependency graph reachable from the given notifiers as
// GraphViz: one node per notifier (solid when active, dashed when inactive),
// one edge per observer relation, pointing downstream. Diagnostic only.
func DumpDot(w io.Writer, roots ...*Notifier) error {
	visited := map[uint64]*Notifier{}

	var walk func(n *Notifier)
	walk = func(n *Notifier) {
		if _, ok := visited[n.id]; ok {
			return
		}
		visited[n.id] = n
		n.eachObserver(walk)
		n.eachObserved(walk)
	}
	for _, root := range roots {
		walk(root)
	}

	return dumpDot(w, visited)
}

// DumpAllDot writes every live notifier in the process, walking the weak
// registry. Diagnostic only.
func DumpAllDot(w io.Writer) error {
	allNotifiersMu.Lock()
	nodes := map[uint64]*Notifier{}
	for id, wp := range allNotifiers {
		if n := wp.Value(); n != nil {
			nodes[id] = n
		} else {
			delete(allNotifiers, id)
		}
	}
	allNotifiersMu.Unlock()

	return dumpDot(w, nodes)
}

func dumpDot(w io.Writer, nodes map[uint64]*Notifier) error {
	if _, err := fmt.Fprintln(w, "digraph notifiers {"); err != nil {
		return err
	}

	ids := make([]uint64, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		n := nodes[id]
		style := "dashed"
		if n.active {
			style = "solid"
		}
		name := n.name
		if name == "" {
			name = "notifier"
		}
		if _, err := fmt.Fprintf(w, "  n%d [label=\"%s\\np=%d calls=%d\", style=%s];\n", n.id, name, n.priority, n.calls, style); err != nil {
			return err
		}
	}

	for _, id := range ids {
		n := nodes[id]
		n.eachObserver(func(observer *Notifier) {
			if _, ok := nodes[observer.id]; ok {
				fmt.Fprintf(w, "  n%d -> n%d;\n", n.id, observer.id)
			}
		})
	}

	_, err := fmt.Fprintln(w, "}")

	return err
}

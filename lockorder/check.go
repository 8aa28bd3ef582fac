// Copyright 2025 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package lockorder

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cockroachdb/field-eng-coordination/syncx"
	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// A CycleError reports an acquisition plan that closes a cycle in the
// lock-order graph. The actors whose plans form the cycle can
// deadlock.
type CycleError struct {
	Actor string   // The actor whose plan closed the cycle.
	Path  []string // The resources along the cycle, first repeated last.
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("lock order cycle %s closed by %s",
		strings.Join(e.Path, " -> "), e.Actor)
}

// CheckOrder builds the lock-order graph for the plans, keyed by actor,
// as the strategy would execute them. An edge from one resource to
// another means some actor requests the second while holding the
// first. A [*CycleError] is returned if the graph contains a cycle.
//
// The Timeout strategy is checked like Unordered: a cycle there causes
// timeouts rather than a deadlock.
func CheckOrder(strategy Strategy, plans map[string][]*syncx.Resource) error {
	_, err := buildGraph(strategy, plans, true)
	return err
}

// WriteDOT renders the lock-order graph for the plans in DOT format.
// Unlike CheckOrder, cycles are drawn rather than rejected.
func WriteDOT(w io.Writer, strategy Strategy, plans map[string][]*syncx.Resource) error {
	g, err := buildGraph(strategy, plans, false)
	if err != nil {
		return err
	}
	return draw.DOT(g, w)
}

func resourceHash(r *syncx.Resource) string { return r.String() }

func buildGraph(
	strategy Strategy, plans map[string][]*syncx.Resource, preventCycles bool,
) (graph.Graph[string, *syncx.Resource], error) {
	traits := []func(*graph.Traits){graph.Directed()}
	if preventCycles {
		traits = append(traits, graph.PreventCycles())
	}
	g := graph.New(resourceHash, traits...)

	actors := make([]string, 0, len(plans))
	for actor := range plans {
		actors = append(actors, actor)
	}
	slices.Sort(actors)

	for _, actor := range actors {
		order := Order(strategy, plans[actor])
		for _, r := range order {
			err := g.AddVertex(r, graph.VertexAttribute("label", r.String()))
			if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, err
			}
		}
		for i := 1; i < len(order); i++ {
			from, to := resourceHash(order[i-1]), resourceHash(order[i])
			err := g.AddEdge(from, to, graph.EdgeAttribute("label", actor))
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, &CycleError{Actor: actor, Path: cyclePath(g, from, to)}
			default:
				return nil, err
			}
		}
	}
	return g, nil
}

// cyclePath returns the cycle that the rejected edge would close.
func cyclePath(g graph.Graph[string, *syncx.Resource], from, to string) []string {
	back, err := graph.ShortestPath(g, to, from)
	if err != nil {
		return []string{from, to, from}
	}
	return append([]string{from}, back...)
}

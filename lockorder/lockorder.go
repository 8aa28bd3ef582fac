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

/*
Package lockorder acquires sets of exclusive resources on behalf of an
actor.

When two actors request the same resources in opposite orders and each
obtains its first resource, neither can obtain its second: a circular
wait. The [Strategy] of an [Acquirer] decides how that is handled:

  - [Unordered] acquires resources in the order requested and can
    deadlock. Callers bound the wait with a context deadline.
  - [Ordered] acquires resources in ascending [syncx.Resource.Index].
    A cycle in the wait-for graph would need some actor to wait on a
    lower resource while holding a higher one, which never happens.
  - [Timeout] acquires in the order requested, but bounds each wait.
    On expiry everything held is released and [syncx.ErrTimeout] is
    returned. There is a single attempt; retrying is left to the
    caller.

[CheckOrder] verifies a set of acquisition plans ahead of time by
building the lock-order graph and looking for cycles.
*/
package lockorder

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/field-eng-coordination/syncx"
)

// DefaultTimeout is used by the [Timeout] strategy when the
// [Acquirer] does not specify one.
const DefaultTimeout = 2 * time.Second

// Strategy selects the acquisition discipline of an [Acquirer].
type Strategy int

// The available strategies.
const (
	Unordered Strategy = iota
	Ordered
	Timeout
)

// Strategies lists every Strategy, in declaration order.
var Strategies = []Strategy{Unordered, Ordered, Timeout}

func (s Strategy) String() string {
	switch s {
	case Unordered:
		return "unordered"
	case Ordered:
		return "ordered"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy returns the Strategy with the given name.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown lock order strategy %q", name)
}

// An Acquirer acquires resources for actors. The zero value acquires in
// the requested order with no bound on the wait.
type Acquirer struct {
	Events   *Events
	Strategy Strategy
	// Timeout bounds each acquisition under the Timeout strategy. Zero
	// selects DefaultTimeout.
	Timeout time.Duration
	// Use, if set, is called after each resource is acquired, before the
	// next one is requested. An error aborts the acquisition.
	Use func(ctx context.Context, actor string, r *syncx.Resource) error
}

// Do acquires the resources for the actor, runs the function, and then
// releases the resources in the reverse order of acquisition. If an
// acquisition fails, whatever is already held is released before the
// error is returned. A nil function is permitted.
func (a *Acquirer) Do(
	ctx context.Context, actor string, want []*syncx.Resource, fn func(ctx context.Context) error,
) error {
	order := Order(a.Strategy, want)
	held := make([]*syncx.Resource, 0, len(order))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release()
			a.Events.doReleased(actor, held[i])
		}
	}()

	for _, r := range order {
		if err := a.acquire(ctx, actor, r); err != nil {
			if errors.Is(err, syncx.ErrTimeout) {
				a.Events.doTimeout(actor, r)
			}
			return err
		}
		held = append(held, r)
		a.Events.doAcquired(actor, r)

		if a.Use != nil {
			if err := a.Use(ctx, actor, r); err != nil {
				return err
			}
		}
	}

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (a *Acquirer) acquire(ctx context.Context, actor string, r *syncx.Resource) error {
	if r.TryAcquire(actor) {
		return nil
	}
	a.Events.doWait(actor, r)
	if a.Strategy != Timeout {
		return r.Acquire(ctx, actor)
	}
	d := a.Timeout
	if d <= 0 {
		d = DefaultTimeout
	}
	return r.AcquireTimeout(ctx, actor, d)
}

// Order returns the order in which an [Acquirer] using the strategy
// would acquire the resources. Duplicates are removed, keeping the
// first occurrence. The input slice is not modified.
func Order(strategy Strategy, want []*syncx.Resource) []*syncx.Resource {
	ret := dedup(want)
	if strategy == Ordered {
		slices.SortStableFunc(ret, func(a, b *syncx.Resource) int {
			return cmp.Or(
				cmp.Compare(a.Index(), b.Index()),
				cmp.Compare(a.Name(), b.Name()),
			)
		})
	}
	return ret
}

// dedup returns a copy of the slice with repeated elements removed.
func dedup[K comparable](keys []K) []K {
	keys = append([]K(nil), keys...)
	seen := make(map[K]struct{}, len(keys))
	idx := 0
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		keys[idx] = key
		idx++
	}
	return keys[:idx]
}

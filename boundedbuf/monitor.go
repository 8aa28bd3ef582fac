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

package boundedbuf

import (
	"context"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/syncx"
)

// monitor guards the ring with one mutex and one condition shared by
// producers and consumers. Since both kinds of waiter share the
// condition, every state change wakes all of them.
type monitor[T any] struct {
	changed *sync.Cond // Uses mu.
	events  *Events

	mu struct {
		sync.Mutex
		ring ring[T]
	}
}

var _ Buffer[int] = (*monitor[int])(nil)

func newMonitor[T any](capacity int, events *Events) *monitor[T] {
	b := &monitor[T]{events: events}
	b.mu.ring = newRing[T](capacity)
	b.changed = sync.NewCond(&b.mu)
	return b
}

func (b *monitor[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.mu.ring.items)
}

func (b *monitor[T]) Consume(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.mu.ring.empty() {
		b.events.doWait(OpConsume, b.mu.ring.count)
		if err := syncx.Wait(ctx, b.changed); err != nil {
			return *new(T), err
		}
	}
	item := b.mu.ring.pop()
	b.events.doConsume(b.mu.ring.count)
	b.changed.Broadcast()
	return item, nil
}

func (b *monitor[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mu.ring.count
}

func (b *monitor[T]) Produce(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.mu.ring.full() {
		b.events.doWait(OpProduce, b.mu.ring.count)
		if err := syncx.Wait(ctx, b.changed); err != nil {
			return err
		}
	}
	b.mu.ring.push(item)
	b.events.doProduce(b.mu.ring.count)
	b.changed.Broadcast()
	return nil
}

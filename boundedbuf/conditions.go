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

// conditions guards the ring with one mutex and two conditions, so that
// a producer wakes only a consumer and vice versa.
type conditions[T any] struct {
	events   *Events
	notEmpty *sync.Cond // Uses mu.
	notFull  *sync.Cond // Uses mu.

	mu struct {
		sync.Mutex
		ring ring[T]
	}
}

var _ Buffer[int] = (*conditions[int])(nil)

func newConditions[T any](capacity int, events *Events) *conditions[T] {
	b := &conditions[T]{events: events}
	b.mu.ring = newRing[T](capacity)
	b.notEmpty = sync.NewCond(&b.mu)
	b.notFull = sync.NewCond(&b.mu)
	return b
}

func (b *conditions[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.mu.ring.items)
}

func (b *conditions[T]) Consume(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.mu.ring.empty() {
		b.events.doWait(OpConsume, b.mu.ring.count)
		if err := syncx.Wait(ctx, b.notEmpty); err != nil {
			// A Signal meant for this waiter may have been absorbed by
			// the cancellation. Pass it on so it isn't lost.
			if !b.mu.ring.empty() {
				b.notEmpty.Signal()
			}
			return *new(T), err
		}
	}
	item := b.mu.ring.pop()
	b.events.doConsume(b.mu.ring.count)
	b.notFull.Signal()
	return item, nil
}

func (b *conditions[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mu.ring.count
}

func (b *conditions[T]) Produce(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.mu.ring.full() {
		b.events.doWait(OpProduce, b.mu.ring.count)
		if err := syncx.Wait(ctx, b.notFull); err != nil {
			if !b.mu.ring.full() {
				b.notFull.Signal()
			}
			return err
		}
	}
	b.mu.ring.push(item)
	b.events.doProduce(b.mu.ring.count)
	b.notEmpty.Signal()
	return nil
}

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

import "context"

// queue delegates blocking and capacity enforcement to a buffered
// channel.
type queue[T any] struct {
	ch     chan T
	events *Events
}

var _ Buffer[int] = (*queue[int])(nil)

func newQueue[T any](capacity int, events *Events) *queue[T] {
	return &queue[T]{
		ch:     make(chan T, capacity),
		events: events,
	}
}

func (b *queue[T]) Cap() int { return cap(b.ch) }

func (b *queue[T]) Consume(ctx context.Context) (T, error) {
	select {
	case item := <-b.ch:
		b.events.doConsume(len(b.ch))
		return item, nil
	default:
	}
	b.events.doWait(OpConsume, len(b.ch))
	select {
	case item := <-b.ch:
		b.events.doConsume(len(b.ch))
		return item, nil
	case <-ctx.Done():
		return *new(T), ctx.Err()
	}
}

func (b *queue[T]) Len() int { return len(b.ch) }

func (b *queue[T]) Produce(ctx context.Context, item T) error {
	select {
	case b.ch <- item:
		b.events.doProduce(len(b.ch))
		return nil
	default:
	}
	b.events.doWait(OpProduce, len(b.ch))
	select {
	case b.ch <- item:
		b.events.doProduce(len(b.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

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
Package boundedbuf coordinates producers and consumers over a
fixed-capacity buffer.

	buf, _ := boundedbuf.New[int](boundedbuf.Conditions, 3, nil)

	// Producer: blocks while the buffer is full.
	err := buf.Produce(ctx, 42)

	// Consumer: blocks while the buffer is empty.
	item, err := buf.Consume(ctx)

Three interchangeable strategies implement the same [Buffer] contract.
[Monitor] uses a single mutex and condition variable and wakes every
waiter after each operation. [Conditions] uses separate notFull and
notEmpty conditions and wakes a single waiter of the right kind.
[Queue] delegates capacity enforcement to a buffered channel.

All strategies are observably equivalent. Items are delivered in
insertion order, no item is lost or duplicated, and the occupancy
never leaves [0, capacity]. A Produce or Consume whose context is
canceled while it waits returns the context's error without modifying
the buffer.
*/
package boundedbuf

import (
	"context"
	"errors"
	"fmt"
)

// ErrCapacity is returned from [New] if the requested capacity is less
// than one.
var ErrCapacity = errors.New("buffer capacity must be at least 1")

// A Buffer is a blocking, fixed-capacity FIFO. Implementations are
// internally synchronized and safe for concurrent use.
type Buffer[T any] interface {
	// Cap returns the fixed capacity of the buffer.
	Cap() int
	// Consume removes and returns the item at the head of the buffer,
	// blocking while the buffer is empty.
	Consume(ctx context.Context) (T, error)
	// Len returns the number of buffered items.
	Len() int
	// Produce inserts the item at the tail of the buffer, blocking while
	// the buffer is full.
	Produce(ctx context.Context, item T) error
}

// Strategy selects the locking discipline of a [Buffer].
type Strategy int

// The available strategies.
const (
	Monitor Strategy = iota
	Conditions
	Queue
)

// Strategies lists every Strategy, in declaration order.
var Strategies = []Strategy{Monitor, Conditions, Queue}

func (s Strategy) String() string {
	switch s {
	case Monitor:
		return "monitor"
	case Conditions:
		return "conditions"
	case Queue:
		return "queue"
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
	return 0, fmt.Errorf("unknown buffer strategy %q", name)
}

// New constructs a Buffer using the strategy. The events may be nil.
func New[T any](strategy Strategy, capacity int, events *Events) (Buffer[T], error) {
	if capacity < 1 {
		return nil, ErrCapacity
	}
	switch strategy {
	case Monitor:
		return newMonitor[T](capacity, events), nil
	case Conditions:
		return newConditions[T](capacity, events), nil
	case Queue:
		return newQueue[T](capacity, events), nil
	default:
		return nil, fmt.Errorf("unknown buffer strategy %d", int(strategy))
	}
}

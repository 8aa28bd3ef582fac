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

// ring is the storage shared by the lock-based strategies. It is not
// synchronized; callers must hold their lock.
type ring[T any] struct {
	count int // 0 <= count <= len(items)
	head  int // Next slot to remove.
	items []T
	tail  int // Next slot to insert.
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) empty() bool { return r.count == 0 }

func (r *ring[T]) full() bool { return r.count == len(r.items) }

// pop must not be called on an empty ring.
func (r *ring[T]) pop() T {
	item := r.items[r.head]
	r.items[r.head] = *new(T) // Don't pin the item.
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return item
}

// push must not be called on a full ring.
func (r *ring[T]) push(item T) {
	r.items[r.tail] = item
	r.tail = (r.tail + 1) % len(r.items)
	r.count++
}

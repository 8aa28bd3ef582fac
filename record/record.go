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
Package record coordinates readers and writers of a single shared
value.

Any number of readers may hold read access at once; a writer holds
exclusive access. Three interchangeable strategies implement the
[Record] contract:

  - [RWLock] uses [sync.RWMutex]. A writer that is waiting blocks
    readers that arrive after it, so writers are not starved.
  - [Counter] uses a manual reader-count protocol: the first reader
    to arrive locks writers out and the last reader to leave lets
    them back in.
  - [Semaphore] runs the same protocol using two binary semaphores.

The Counter and Semaphore strategies prefer readers. As long as the
read sections overlap, the reader count never drops to zero and a
waiting writer is never admitted. That starvation is a property of the
algorithm and is preserved.
*/
package record

import (
	"context"
	"fmt"
	"sync/atomic"
)

// A Record is a value shared between readers and writers.
// Implementations are internally synchronized and safe for concurrent
// use.
type Record[T any] interface {
	// Read returns a copy of the current value.
	Read(ctx context.Context) (T, error)
	// Readers returns the number of readers currently holding read
	// access.
	Readers() int
	// Update replaces the value with the result of the function. Write
	// access is held while the function runs.
	Update(ctx context.Context, fn func(T) T) error
	// View invokes the function with the current value. Read access is
	// held while the function runs.
	View(ctx context.Context, fn func(T)) error
	// Write replaces the value.
	Write(ctx context.Context, value T) error
}

// Strategy selects the locking discipline of a [Record].
type Strategy int

// The available strategies.
const (
	RWLock Strategy = iota
	Counter
	Semaphore
)

// Strategies lists every Strategy, in declaration order.
var Strategies = []Strategy{RWLock, Counter, Semaphore}

func (s Strategy) String() string {
	switch s {
	case RWLock:
		return "rwlock"
	case Counter:
		return "counter"
	case Semaphore:
		return "semaphore"
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
	return 0, fmt.Errorf("unknown record strategy %q", name)
}

// ReaderPreferring returns true if the strategy can starve writers.
func (s Strategy) ReaderPreferring() bool {
	return s == Counter || s == Semaphore
}

// New constructs a Record holding the initial value. The events may be
// nil.
func New[T any](strategy Strategy, initial T, events *Events) (Record[T], error) {
	var l locker
	switch strategy {
	case RWLock:
		l = newRWLocker()
	case Counter:
		l = newCounterLocker()
	case Semaphore:
		l = newSemaphoreLocker()
	default:
		return nil, fmt.Errorf("unknown record strategy %d", int(strategy))
	}
	return &record[T]{events: events, lock: l, value: initial}, nil
}

// A locker provides the read and write access discipline. Unlock
// methods must only be called after a successful lock.
type locker interface {
	lockRead(ctx context.Context) error
	lockWrite(ctx context.Context) error
	tryLockWrite() bool
	unlockRead()
	unlockWrite()
}

type record[T any] struct {
	active atomic.Int32 // Readers inside View.
	events *Events
	lock   locker
	value  T // Guarded by lock.
}

var _ Record[int] = (*record[int])(nil)

func (r *record[T]) Read(ctx context.Context) (T, error) {
	var ret T
	err := r.View(ctx, func(value T) { ret = value })
	return ret, err
}

func (r *record[T]) Readers() int {
	return int(r.active.Load())
}

func (r *record[T]) Update(ctx context.Context, fn func(T) T) error {
	if !r.lock.tryLockWrite() {
		r.events.doWriteWait()
		if err := r.lock.lockWrite(ctx); err != nil {
			return err
		}
	}
	defer r.lock.unlockWrite()
	r.events.doWrite(int(r.active.Load()))
	r.value = fn(r.value)
	return nil
}

func (r *record[T]) View(ctx context.Context, fn func(T)) error {
	if err := r.lock.lockRead(ctx); err != nil {
		return err
	}
	defer r.lock.unlockRead()
	r.events.doReadStart(int(r.active.Add(1)))
	defer func() { r.events.doReadEnd(int(r.active.Add(-1))) }()
	fn(r.value)
	return nil
}

func (r *record[T]) Write(ctx context.Context, value T) error {
	return r.Update(ctx, func(T) T { return value })
}

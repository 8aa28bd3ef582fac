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

// Package syncx contains the locking vocabulary shared by the
// coordinators in this module: a lock whose acquisition can be
// abandoned, an interruptible condition wait, and named resources.
//
// It also provides rendezvous points whose waits honor a context: a
// one-shot [Latch], a cyclic [Barrier], an [Exchanger] for pairwise
// swaps and a [Phaser] with dynamic registration.
package syncx

import (
	"context"
	"fmt"
	"time"
)

// ErrTimeout is returned when a bounded wait expires before the lock
// has been acquired. It matches [context.DeadlineExceeded] when tested
// with [errors.Is].
var ErrTimeout = fmt.Errorf("%w: lock wait timed out", context.DeadlineExceeded)

// A Mutex is a mutual exclusion lock whose acquisition can be
// abandoned. A blocked [Mutex.Lock] returns once its context is done,
// leaving the Mutex untouched.
//
// A Mutex is not associated with a particular goroutine. It is legal
// for one goroutine to lock a Mutex and for another to unlock it.
//
// The zero value is not usable; construct instances with [NewMutex].
type Mutex struct {
	ch chan struct{} // Holds a token while locked.
}

// NewMutex constructs an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Lock blocks until the Mutex has been acquired or the context is
// done. If the context is done first, the context's error is returned
// and the Mutex is not held.
func (m *Mutex) Lock(ctx context.Context) error {
	if m.TryLock() {
		return nil
	}
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LockTimeout is like [Mutex.Lock], but gives up after the duration
// has elapsed and returns [ErrTimeout].
func (m *Mutex) LockTimeout(ctx context.Context, d time.Duration) error {
	if m.TryLock() {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Locked returns true if the Mutex is currently held. The value is
// stale as soon as it is returned and is intended for reporting.
func (m *Mutex) Locked() bool {
	return len(m.ch) == 1
}

// TryLock acquires the Mutex if it is free and reports whether it did
// so.
func (m *Mutex) TryLock() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the Mutex. It panics if the Mutex is not locked.
func (m *Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
		panic("syncx: unlock of unlocked Mutex")
	}
}

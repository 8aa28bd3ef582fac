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


package syncx

import (
	"context"
	"sync"
)

// A Latch is a one-shot gate. It opens once it has been counted down
// to zero and stays open; waiters block until then.
type Latch struct {
	open chan struct{}

	mu struct {
		sync.Mutex
		count int
	}
}

// NewLatch constructs a Latch that opens after count calls to
// [Latch.CountDown]. A non-positive count yields an open Latch.
func NewLatch(count int) *Latch {
	l := &Latch{open: make(chan struct{})}
	l.mu.count = max(count, 0)
	if l.mu.count == 0 {
		close(l.open)
	}
	return l
}

// Count returns the number of outstanding counts.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.count
}

// CountDown decrements the count, opening the Latch when it reaches
// zero. Counting down an open Latch has no effect.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mu.count == 0 {
		return
	}
	l.mu.count--
	if l.mu.count == 0 {
		close(l.open)
	}
}

// Done returns a channel that is closed once the Latch opens.
func (l *Latch) Done() <-chan struct{} {
	return l.open
}

// Wait blocks until the Latch opens or the context is done. An
// abandoned wait leaves the count untouched.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.open:
		return nil
	default:
	}
	select {
	case <-l.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

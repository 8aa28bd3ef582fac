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

package barber

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// semaphoreRoom counts free chairs with a semaphore. A customer holds a
// permit from the moment it sits down until it is called or walks out.
type semaphoreRoom struct {
	chairs     *semaphore.Weighted
	events     *Events
	isSleeping atomic.Bool
	wake       chan struct{} // Wakes a sleeping barber.

	mu struct {
		sync.Mutex
		closed bool
		line   line
	}
}

var _ room = (*semaphoreRoom)(nil)

func newSemaphoreRoom(chairs int, events *Events) *semaphoreRoom {
	return &semaphoreRoom{
		chairs: semaphore.NewWeighted(int64(chairs)),
		events: events,
		wake:   make(chan struct{}, 1),
	}
}

func (r *semaphoreRoom) close() {
	r.mu.Lock()
	r.mu.closed = true
	r.mu.Unlock()
	r.notify()
}

func (r *semaphoreRoom) leave(t *ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.line.remove(t) {
		r.chairs.Release(1)
	}
}

func (r *semaphoreRoom) next(ctx context.Context) (*ticket, error) {
	for {
		r.mu.Lock()
		if len(r.mu.line) > 0 {
			t := r.mu.line.pop()
			r.mu.Unlock()
			r.chairs.Release(1)
			return t, nil
		}
		closed := r.mu.closed
		r.mu.Unlock()
		if closed {
			return nil, nil
		}

		r.isSleeping.Store(true)
		r.events.doSleep()
		select {
		case <-r.wake:
			r.isSleeping.Store(false)
		case <-ctx.Done():
			r.isSleeping.Store(false)
			return nil, ctx.Err()
		}
	}
}

func (r *semaphoreRoom) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *semaphoreRoom) seat(t *ticket) bool {
	if !r.chairs.TryAcquire(1) {
		return false
	}
	r.mu.Lock()
	if r.mu.closed {
		r.mu.Unlock()
		r.chairs.Release(1)
		return false
	}
	r.mu.line.push(t)
	r.events.doSeated(t.customer, len(r.mu.line))
	r.mu.Unlock()
	r.notify()
	return true
}

func (r *semaphoreRoom) sleeping() bool { return r.isSleeping.Load() }

func (r *semaphoreRoom) waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mu.line)
}

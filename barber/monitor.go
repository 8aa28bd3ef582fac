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

	"github.com/cockroachdb/field-eng-coordination/syncx"
)

// monitorRoom keeps the line, the sleeping flag and the closed flag
// under one lock. The barber sleeps on wake.
type monitorRoom struct {
	chairs int
	events *Events
	wake   *sync.Cond

	mu struct {
		sync.Mutex
		closed   bool
		line     line
		sleeping bool
	}
}

var _ room = (*monitorRoom)(nil)

func newMonitorRoom(chairs int, events *Events) *monitorRoom {
	r := &monitorRoom{chairs: chairs, events: events}
	r.wake = sync.NewCond(&r.mu.Mutex)
	return r
}

func (r *monitorRoom) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.closed = true
	r.wake.Broadcast()
}

func (r *monitorRoom) leave(t *ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.line.remove(t)
}

func (r *monitorRoom) next(ctx context.Context) (*ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.mu.line) == 0 {
		if r.mu.closed {
			return nil, nil
		}
		r.mu.sleeping = true
		r.events.doSleep()
		err := syncx.Wait(ctx, r.wake)
		r.mu.sleeping = false
		if err != nil {
			return nil, err
		}
	}
	return r.mu.line.pop(), nil
}

func (r *monitorRoom) seat(t *ticket) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.closed || len(r.mu.line) >= r.chairs {
		return false
	}
	r.mu.line.push(t)
	r.events.doSeated(t.customer, len(r.mu.line))
	if r.mu.sleeping {
		r.wake.Signal()
	}
	return true
}

func (r *monitorRoom) sleeping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.sleeping
}

func (r *monitorRoom) waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mu.line)
}

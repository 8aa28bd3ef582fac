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
)

// queueRoom uses a channel as the waiting room. A nil ticket is the
// closing sentinel. The chair of a customer that walks out stays taken
// until the barber reaches and discards its ticket.
type queueRoom struct {
	chairs     int
	events     *Events
	isSleeping atomic.Bool
	tickets    chan *ticket // One extra slot for the sentinel.
	occupied   atomic.Int32

	mu struct {
		sync.Mutex // Serializes seating with closing.
		closed     bool
	}
}

var _ room = (*queueRoom)(nil)

func newQueueRoom(chairs int, events *Events) *queueRoom {
	return &queueRoom{
		chairs:  chairs,
		events:  events,
		tickets: make(chan *ticket, chairs+1),
	}
}

func (r *queueRoom) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.closed {
		return
	}
	r.mu.closed = true
	r.tickets <- nil
}

func (r *queueRoom) leave(*ticket) {}

func (r *queueRoom) next(ctx context.Context) (*ticket, error) {
	var t *ticket
	select {
	case t = <-r.tickets:
	default:
		r.isSleeping.Store(true)
		r.events.doSleep()
		select {
		case t = <-r.tickets:
			r.isSleeping.Store(false)
		case <-ctx.Done():
			r.isSleeping.Store(false)
			return nil, ctx.Err()
		}
	}
	if t == nil {
		// Put the sentinel back for any later call.
		r.tickets <- nil
		return nil, nil
	}
	r.occupied.Add(-1)
	return t, nil
}

func (r *queueRoom) seat(t *ticket) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.closed || int(r.occupied.Load()) >= r.chairs {
		return false
	}
	waiting := r.occupied.Add(1)
	r.tickets <- t
	r.events.doSeated(t.customer, int(waiting))
	return true
}

func (r *queueRoom) sleeping() bool { return r.isSleeping.Load() }

func (r *queueRoom) waiting() int { return int(r.occupied.Load()) }

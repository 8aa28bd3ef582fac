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

package dining

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/syncx"
)

// monitorTable decides every transition under the ledger's lock. Each
// seat waits on its own condition and is signaled only when it has
// been moved to eating.
type monitorTable struct {
	*ledger
	conds []*sync.Cond

	// Guarded by ledger.mu.
	next    uint64
	tickets []uint64 // Arrival order of hungry seats.
}

var _ Table = (*monitorTable)(nil)

func newMonitorTable(l *ledger) *monitorTable {
	t := &monitorTable{
		ledger:  l,
		conds:   make([]*sync.Cond, l.seats),
		tickets: make([]uint64, l.seats),
	}
	for i := range t.conds {
		t.conds[i] = sync.NewCond(&l.mu.Mutex)
	}
	return t
}

func (t *monitorTable) Pickup(ctx context.Context, seat int) error {
	if err := t.checkSeat(seat); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mu.states[seat] != Thinking {
		return fmt.Errorf("%w: seat %d is %s", ErrSeatBusy, seat, t.mu.states[seat])
	}
	t.setLocked(seat, Hungry)
	t.next++
	t.tickets[seat] = t.next
	t.tryLocked(seat)

	for t.mu.states[seat] != Eating {
		if err := syncx.Wait(ctx, t.conds[seat]); err != nil {
			if t.mu.states[seat] == Eating {
				// Admitted while being canceled.
				return nil
			}
			t.setLocked(seat, Thinking)
			// A neighbor may have been deferring to this seat.
			t.tryLocked(t.left(seat))
			t.tryLocked(t.right(seat))
			return err
		}
	}
	return nil
}

func (t *monitorTable) Putdown(seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustBeEatingLocked(seat)
	t.setLocked(seat, Thinking)
	t.tryLocked(t.left(seat))
	t.tryLocked(t.right(seat))
}

// tryLocked moves the seat to eating if it is hungry, neither neighbor
// is eating, and no hungry neighbor arrived before it.
func (t *monitorTable) tryLocked(seat int) {
	if t.mu.states[seat] != Hungry {
		return
	}
	for _, n := range [2]int{t.left(seat), t.right(seat)} {
		switch t.mu.states[n] {
		case Eating:
			return
		case Hungry:
			if t.tickets[n] < t.tickets[seat] {
				return
			}
		}
	}
	t.setLocked(seat, Eating)
	t.conds[seat].Signal()
}

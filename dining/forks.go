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

	"github.com/cockroachdb/field-eng-coordination/syncx"
	"golang.org/x/sync/semaphore"
)

// forkTable gives each fork its own lock. Seat i uses fork i on its
// left and fork i+1 on its right.
type forkTable struct {
	*ledger
	forks   []*syncx.Resource
	ordered bool
	room    *semaphore.Weighted // Nil unless the room is limited.
}

var _ Table = (*forkTable)(nil)

func newForkTable(l *ledger, limitRoom, ordered bool) *forkTable {
	t := &forkTable{
		ledger:  l,
		forks:   make([]*syncx.Resource, l.seats),
		ordered: ordered,
	}
	for i := range t.forks {
		t.forks[i] = syncx.NewResource("fork", i)
	}
	if limitRoom {
		t.room = semaphore.NewWeighted(int64(l.seats - 1))
	}
	return t
}

// forksOf returns the forks of the seat in the order they are picked
// up.
func (t *forkTable) forksOf(seat int) (first, second *syncx.Resource) {
	first, second = t.forks[seat], t.forks[t.right(seat)]
	if t.ordered && second.Index() < first.Index() {
		first, second = second, first
	}
	return first, second
}

func (t *forkTable) Pickup(ctx context.Context, seat int) error {
	if err := t.enter(seat); err != nil {
		return err
	}
	if err := t.acquire(ctx, seat); err != nil {
		t.set(seat, Thinking)
		return err
	}
	t.set(seat, Eating)
	return nil
}

func (t *forkTable) acquire(ctx context.Context, seat int) error {
	if t.room != nil {
		if err := t.room.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	actor := fmt.Sprintf("seat-%d", seat)
	first, second := t.forksOf(seat)
	if err := first.Acquire(ctx, actor); err != nil {
		t.leaveRoom()
		return err
	}
	if err := second.Acquire(ctx, actor); err != nil {
		first.Release()
		t.leaveRoom()
		return err
	}
	return nil
}

func (t *forkTable) leaveRoom() {
	if t.room != nil {
		t.room.Release(1)
	}
}

func (t *forkTable) Putdown(seat int) {
	func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.mustBeEatingLocked(seat)
		t.setLocked(seat, Thinking)
	}()

	first, second := t.forksOf(seat)
	second.Release()
	first.Release()
	t.leaveRoom()
}

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
	"errors"
	"fmt"
	"sync"
)

// ErrBrokenBarrier is returned to the waiters of a Barrier generation
// that one of its parties abandoned.
var ErrBrokenBarrier = errors.New("barrier broken by an abandoned wait")

// ErrParties is returned when a Barrier is constructed with fewer than
// one party.
var ErrParties = errors.New("a barrier needs at least one party")

// A Barrier is a reusable rendezvous point for a fixed number of
// parties. Each generation trips once every party has arrived, and the
// Barrier then resets for the next generation.
type Barrier struct {
	action  func(generation int)
	parties int

	mu struct {
		sync.Mutex
		arrived int
		current *generation
	}
}

type generation struct {
	broken  bool // Guarded by Barrier.mu.
	id      int
	tripped chan struct{}
}

// NewBarrier constructs a Barrier for the given number of parties. If
// action is non-nil, it is called by the last party to arrive before
// any party of the generation is released. The action runs while the
// Barrier is locked and must not call back into it.
func NewBarrier(parties int, action func(generation int)) (*Barrier, error) {
	if parties < 1 {
		return nil, fmt.Errorf("%w: %d", ErrParties, parties)
	}
	b := &Barrier{action: action, parties: parties}
	b.mu.current = &generation{tripped: make(chan struct{})}
	return b, nil
}

// Await blocks until every party has arrived at the current
// generation, and returns that generation's number, counting from
// zero.
//
// If the context is done first, the party's arrival is withdrawn by
// breaking the generation: Await returns the context's error and every
// other party waiting in that generation receives [ErrBrokenBarrier].
// The Barrier itself moves on to a fresh generation and remains
// usable. A generation that trips concurrently with the cancellation
// is reported as tripped.
func (b *Barrier) Await(ctx context.Context) (int, error) {
	b.mu.Lock()
	g := b.mu.current
	if err := ctx.Err(); err != nil {
		b.mu.Unlock()
		return g.id, err
	}
	b.mu.arrived++
	if b.mu.arrived == b.parties {
		if b.action != nil {
			b.action(g.id)
		}
		b.advanceLocked()
		b.mu.Unlock()
		return g.id, nil
	}
	b.mu.Unlock()

	select {
	case <-g.tripped:
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mu.current != g {
		if g.broken {
			return g.id, ErrBrokenBarrier
		}
		return g.id, nil
	}
	g.broken = true
	b.advanceLocked()
	return g.id, ctx.Err()
}

// Generation returns the number of the generation now assembling.
func (b *Barrier) Generation() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mu.current.id
}

// Parties returns the number of parties required to trip the Barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting returns the number of parties arrived at the current
// generation.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mu.arrived
}

func (b *Barrier) advanceLocked() {
	g := b.mu.current
	b.mu.arrived = 0
	b.mu.current = &generation{id: g.id + 1, tripped: make(chan struct{})}
	close(g.tripped)
}

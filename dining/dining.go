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
Package dining coordinates actors seated around a circular table. Each
seat shares one fork with each neighbor and needs both to eat.

A seat moves from [Thinking] to [Hungry] when it asks to eat, to
[Eating] once it is admitted, and back to [Thinking] when it is done.
No two adjacent seats are ever [Eating] at the same time. The
strategies differ in how they rule out the circular wait that arises
when every seat holds one fork:

  - [Semaphore] admits at most N-1 seats to the table at once, so some
    seat can always obtain both forks.
  - [Ordered] picks up the lower-numbered fork first, so the last seat
    reaches in the opposite direction from the others.
  - [Monitor] tracks every seat's state under a single lock and admits
    a hungry seat only when neither neighbor is eating. A hungry seat
    also defers to a neighbor that has been hungry longer, so no seat
    waits forever.
*/
package dining

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSeats is returned from [New] when the table is too small.
var ErrSeats = errors.New("a table needs at least two seats")

// ErrSeatBusy is returned from [Table.Pickup] when the seat is already
// hungry or eating.
var ErrSeatBusy = errors.New("seat is not thinking")

// State is the state of a seat.
type State int

// The seat states.
const (
	Thinking State = iota
	Hungry
	Eating
)

func (s State) String() string {
	switch s {
	case Thinking:
		return "THINKING"
	case Hungry:
		return "HUNGRY"
	case Eating:
		return "EATING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Strategy selects how a [Table] avoids deadlock.
type Strategy int

// The available strategies.
const (
	Semaphore Strategy = iota
	Ordered
	Monitor
)

// Strategies lists every Strategy, in declaration order.
var Strategies = []Strategy{Semaphore, Ordered, Monitor}

func (s Strategy) String() string {
	switch s {
	case Semaphore:
		return "semaphore"
	case Ordered:
		return "ordered"
	case Monitor:
		return "monitor"
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
	return 0, fmt.Errorf("unknown dining strategy %q", name)
}

// StarvationFree returns true if the strategy guarantees that every
// hungry seat eventually eats.
func (s Strategy) StarvationFree() bool {
	return s == Monitor
}

// A Table coordinates the seats. Seats are numbered from zero; the
// neighbors of seat i are i-1 and i+1, modulo the number of seats.
type Table interface {
	// Meals returns the number of times the seat has started eating.
	Meals(seat int) int
	// Pickup makes the seat hungry and blocks until it is eating. If
	// the context is done first, the seat returns to thinking without
	// holding anything and the context's error is returned.
	Pickup(ctx context.Context, seat int) error
	// Putdown returns an eating seat to thinking and lets its
	// neighbors proceed. It panics if the seat is not eating.
	Putdown(seat int)
	// Seats returns the number of seats.
	Seats() int
	// State returns the current state of a seat.
	State(seat int) State
	// States returns a snapshot of every seat's state.
	States() []State
}

// New constructs a Table with the given number of seats, all thinking.
// The events may be nil.
func New(strategy Strategy, seats int, events *Events) (Table, error) {
	if seats < 2 {
		return nil, fmt.Errorf("%w: %d", ErrSeats, seats)
	}
	l := newLedger(seats, events)
	switch strategy {
	case Semaphore:
		return newForkTable(l, true, false), nil
	case Ordered:
		return newForkTable(l, false, true), nil
	case Monitor:
		return newMonitorTable(l), nil
	default:
		return nil, fmt.Errorf("unknown dining strategy %d", int(strategy))
	}
}

// ledger holds the per-seat bookkeeping shared by all strategies.
type ledger struct {
	events *Events
	seats  int

	mu struct {
		sync.Mutex
		meals  []int
		states []State
	}
}

func newLedger(seats int, events *Events) *ledger {
	l := &ledger{events: events, seats: seats}
	l.mu.meals = make([]int, seats)
	l.mu.states = make([]State, seats)
	return l
}

func (l *ledger) Meals(seat int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.meals[seat]
}

func (l *ledger) Seats() int { return l.seats }

func (l *ledger) State(seat int) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.states[seat]
}

func (l *ledger) States() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.mu.states...)
}

func (l *ledger) left(seat int) int { return (seat + l.seats - 1) % l.seats }

func (l *ledger) right(seat int) int { return (seat + 1) % l.seats }

func (l *ledger) checkSeat(seat int) error {
	if seat < 0 || seat >= l.seats {
		return fmt.Errorf("no seat %d at a table of %d", seat, l.seats)
	}
	return nil
}

// setLocked moves the seat to a new state. The caller holds mu.
func (l *ledger) setLocked(seat int, to State) {
	from := l.mu.states[seat]
	l.mu.states[seat] = to
	if to == Eating {
		l.mu.meals[seat]++
	}
	l.events.doStateChange(seat, from, to)
}

// enter moves a thinking seat to hungry.
func (l *ledger) enter(seat int) error {
	if err := l.checkSeat(seat); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mu.states[seat] != Thinking {
		return fmt.Errorf("%w: seat %d is %s", ErrSeatBusy, seat, l.mu.states[seat])
	}
	l.setLocked(seat, Hungry)
	return nil
}

func (l *ledger) set(seat int, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setLocked(seat, to)
}

// mustBeEatingLocked panics unless the seat is eating. The caller holds mu.
func (l *ledger) mustBeEatingLocked(seat int) {
	if seat < 0 || seat >= l.seats || l.mu.states[seat] != Eating {
		panic(fmt.Sprintf("dining: putdown of seat %d which is not eating", seat))
	}
}

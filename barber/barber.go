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
Package barber coordinates customers visiting a shop with a finite
waiting room and a single barber.

A customer who finds every chair taken, or the shop closed, is turned
away at once. A seated customer waits until the barber calls it and
the cut is finished. The barber sleeps while the waiting room is empty
and is woken by the next arrival.

The strategies differ in how the waiting room is represented:

  - [Semaphore] counts free chairs with a semaphore and keeps the
    waiting customers in a mutex-protected line.
  - [Queue] uses a bounded channel as the waiting room. Closing the
    shop enqueues a sentinel behind the last customer.
  - [Monitor] keeps the line and an explicit sleeping flag under one
    lock; the barber sleeps on a condition variable.

Only one goroutine may run [Shop.Serve] at a time.
*/
package barber

import (
	"context"
	"errors"
	"fmt"
)

// ErrChairs is returned from [New] when the waiting room has no chairs.
var ErrChairs = errors.New("a waiting room needs at least one chair")

// Outcome reports how a visit ended.
type Outcome int

// The visit outcomes.
const (
	// Served means the customer reached the barber's chair.
	Served Outcome = iota
	// TurnedAway means the customer found no free chair, or the shop
	// closed, and left immediately.
	TurnedAway
	// WalkedOut means the customer gave up while waiting.
	WalkedOut
)

func (o Outcome) String() string {
	switch o {
	case Served:
		return "served"
	case TurnedAway:
		return "turned away"
	case WalkedOut:
		return "walked out"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Strategy selects the waiting room of a [Shop].
type Strategy int

// The available strategies.
const (
	Semaphore Strategy = iota
	Queue
	Monitor
)

// Strategies lists every Strategy, in declaration order.
var Strategies = []Strategy{Semaphore, Queue, Monitor}

func (s Strategy) String() string {
	switch s {
	case Semaphore:
		return "semaphore"
	case Queue:
		return "queue"
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
	return 0, fmt.Errorf("unknown barber strategy %q", name)
}

// A Cut is the barber's work on one customer. It should return early
// if the context is done.
type Cut func(ctx context.Context, customer int) error

// A Shop is a waiting room and a barber.
type Shop interface {
	// Chairs returns the size of the waiting room.
	Chairs() int
	// Close stops admitting customers. The barber finishes with those
	// already waiting and then returns from Serve. Close may be called
	// more than once.
	Close()
	// Serve runs the barber until the shop is closed and the waiting
	// room is empty, in which case it returns nil, or until the
	// context is done. A nil Cut finishes each customer immediately.
	Serve(ctx context.Context, cut Cut) error
	// Sleeping returns true while the barber is waiting for customers.
	Sleeping() bool
	// Visit admits the customer, if there is room, and waits to be
	// served. A customer whose context ends while waiting gives up its
	// chair and returns WalkedOut with the context's error. A customer
	// already in the barber's chair stays for the cut; an error from
	// the cut is returned alongside Served.
	Visit(ctx context.Context, customer int) (Outcome, error)
	// Waiting returns the number of occupied chairs.
	Waiting() int
}

// New constructs an open Shop. The events may be nil.
func New(strategy Strategy, chairs int, events *Events) (Shop, error) {
	if chairs < 1 {
		return nil, fmt.Errorf("%w: %d", ErrChairs, chairs)
	}
	var r room
	switch strategy {
	case Semaphore:
		r = newSemaphoreRoom(chairs, events)
	case Queue:
		r = newQueueRoom(chairs, events)
	case Monitor:
		r = newMonitorRoom(chairs, events)
	default:
		return nil, fmt.Errorf("unknown barber strategy %d", int(strategy))
	}
	return &shop{chairs: chairs, events: events, room: r}, nil
}

// A room holds the tickets of waiting customers.
type room interface {
	// close stops seating and wakes the barber.
	close()
	// leave gives up the chair of an abandoned ticket, if the ticket is
	// still in the room.
	leave(t *ticket)
	// next blocks until a ticket is available. It returns nil once the
	// room is closed and empty.
	next(ctx context.Context) (*ticket, error)
	// seat admits the ticket. It returns false if every chair is taken
	// or the room is closed.
	seat(t *ticket) bool
	sleeping() bool
	waiting() int
}

type shop struct {
	chairs int
	events *Events
	room   room
}

var _ Shop = (*shop)(nil)

func (s *shop) Chairs() int { return s.chairs }

func (s *shop) Close() { s.room.close() }

func (s *shop) Serve(ctx context.Context, cut Cut) error {
	for {
		t, err := s.room.next(ctx)
		if err != nil {
			return err
		}
		if t == nil {
			return nil
		}
		if !t.call() {
			// The customer walked out.
			continue
		}
		s.events.doServe(t.customer)
		var cutErr error
		if cut != nil {
			cutErr = cut(ctx, t.customer)
		}
		t.done <- cutErr
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *shop) Sleeping() bool { return s.room.sleeping() }

func (s *shop) Visit(ctx context.Context, customer int) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return WalkedOut, err
	}
	t := newTicket(customer)
	if !s.room.seat(t) {
		s.events.doTurnedAway(customer)
		return TurnedAway, nil
	}

	select {
	case <-t.called:
	case <-ctx.Done():
		if t.abandon() {
			s.room.leave(t)
			s.events.doWalkout(customer)
			return WalkedOut, ctx.Err()
		}
		// Called before the customer could leave.
		<-t.called
	}
	return Served, <-t.done
}

func (s *shop) Waiting() int { return s.room.waiting() }

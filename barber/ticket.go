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

import "sync/atomic"

const (
	ticketWaiting int32 = iota
	ticketCalled
	ticketAbandoned
)

// A ticket is a seated customer. Exactly one of the barber calling it
// and the customer abandoning it succeeds.
type ticket struct {
	called   chan struct{} // Closed once the barber calls the customer.
	customer int
	done     chan error // Receives the result of the cut.
	state    atomic.Int32
}

func newTicket(customer int) *ticket {
	return &ticket{
		called:   make(chan struct{}),
		customer: customer,
		done:     make(chan error, 1),
	}
}

func (t *ticket) abandon() bool {
	return t.state.CompareAndSwap(ticketWaiting, ticketAbandoned)
}

func (t *ticket) call() bool {
	if !t.state.CompareAndSwap(ticketWaiting, ticketCalled) {
		return false
	}
	close(t.called)
	return true
}

// line is a FIFO of tickets.
type line []*ticket

func (l *line) pop() *ticket {
	t := (*l)[0]
	(*l)[0] = nil
	*l = (*l)[1:]
	return t
}

func (l *line) push(t *ticket) { *l = append(*l, t) }

// remove deletes the ticket, returning false if it is not present.
func (l *line) remove(t *ticket) bool {
	for i, found := range *l {
		if found == t {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

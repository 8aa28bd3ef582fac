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
	"sync"
)

// ErrTerminated is returned when registering with a Phaser that has no
// parties left.
var ErrTerminated = errors.New("phaser terminated")

// A Phaser is a reusable barrier whose parties may register and
// deregister between phases. A phase advances once every registered
// party has arrived. When the last party deregisters, the Phaser
// terminates and every later wait returns at once.
type Phaser struct {
	mu struct {
		sync.Mutex
		advanced   chan struct{} // Closed when the current phase ends.
		arrived    int
		parties    int
		phase      int
		terminated bool
	}
}

// NewPhaser constructs a Phaser with the given number of registered
// parties.
func NewPhaser(parties int) *Phaser {
	p := &Phaser{}
	p.mu.advanced = make(chan struct{})
	p.mu.parties = max(parties, 0)
	return p
}

// Register adds a party to the current phase and returns that phase.
func (p *Phaser) Register() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mu.terminated {
		return p.mu.phase, ErrTerminated
	}
	p.mu.parties++
	return p.mu.phase, nil
}

// Arrive records the arrival of a party at the current phase without
// waiting for the others, and returns the phase arrived at. It panics
// if every registered party has already arrived.
func (p *Phaser) Arrive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arriveLocked(false)
}

// ArriveAndDeregister records an arrival and removes the party from
// later phases.
func (p *Phaser) ArriveAndDeregister() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arriveLocked(true)
}

// ArriveAndAwait records an arrival and waits for the phase to
// advance, returning the number of the new phase. The arrival stands
// even if the context is done before the phase advances.
func (p *Phaser) ArriveAndAwait(ctx context.Context) (int, error) {
	p.mu.Lock()
	phase := p.arriveLocked(false)
	p.mu.Unlock()
	return p.AwaitAdvance(ctx, phase)
}

// AwaitAdvance waits for the given phase to end and returns the number
// of the current phase. It returns immediately if the phase has
// already ended or the Phaser has terminated.
func (p *Phaser) AwaitAdvance(ctx context.Context, phase int) (int, error) {
	p.mu.Lock()
	if p.mu.phase != phase || p.mu.terminated {
		defer p.mu.Unlock()
		return p.mu.phase, nil
	}
	advanced := p.mu.advanced
	p.mu.Unlock()

	select {
	case <-advanced:
	case <-ctx.Done():
		return phase, ctx.Err()
	}
	return p.Phase(), nil
}

// Parties returns the number of registered parties.
func (p *Phaser) Parties() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mu.parties
}

// Phase returns the number of the current phase.
func (p *Phaser) Phase() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mu.phase
}

// Terminated returns true once every party has deregistered.
func (p *Phaser) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mu.terminated
}

func (p *Phaser) arriveLocked(deregister bool) int {
	if p.mu.terminated {
		return p.mu.phase
	}
	if p.mu.arrived >= p.mu.parties {
		panic("syncx: arrival at Phaser by an unregistered party")
	}
	phase := p.mu.phase
	if deregister {
		p.mu.parties--
	} else {
		p.mu.arrived++
	}
	if p.mu.arrived == p.mu.parties {
		p.mu.arrived = 0
		p.mu.phase++
		p.mu.terminated = p.mu.parties == 0
		close(p.mu.advanced)
		p.mu.advanced = make(chan struct{})
	}
	return phase
}

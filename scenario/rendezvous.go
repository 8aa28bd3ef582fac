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


package scenario

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/syncx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Primitive selects the rendezvous exercised by [RunRendezvous].
type Primitive int

// The available primitives.
const (
	// Latch has workers wait for a start signal, and a coordinator wait
	// for every worker to finish.
	Latch Primitive = iota
	// Barrier has workers meet at the end of each phase.
	Barrier
	// Exchanger has a producer and a consumer swap an item for an
	// acknowledgement.
	Exchanger
	// Phaser has a coordinator and self-registering workers step through
	// the phases, deregistering when done.
	Phaser
	// Completion submits tasks to a bounded pool and collects their
	// results in completion order.
	Completion
)

// Primitives lists every Primitive, in declaration order.
var Primitives = []Primitive{Latch, Barrier, Exchanger, Phaser, Completion}

func (p Primitive) String() string {
	switch p {
	case Latch:
		return "latch"
	case Barrier:
		return "barrier"
	case Exchanger:
		return "exchanger"
	case Phaser:
		return "phaser"
	case Completion:
		return "completion"
	default:
		return fmt.Sprintf("Primitive(%d)", int(p))
	}
}

// ParsePrimitive returns the Primitive with the given name.
func ParsePrimitive(name string) (Primitive, error) {
	for _, p := range Primitives {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown rendezvous primitive %q", name)
}

// RunRendezvous runs workers that coordinate through the primitive.
func RunRendezvous(
	ctx context.Context, cfg *Config, primitive Primitive, logger *logrus.Entry,
) (*Report, error) {
	r, err := newRun(ctx, cfg, Rendezvous, primitive.String(), logger)
	if err != nil {
		return nil, err
	}
	switch primitive {
	case Latch:
		runLatch(r, cfg)
	case Barrier:
		if err := runBarrier(r, cfg); err != nil {
			return nil, err
		}
	case Exchanger:
		runExchanger(r, cfg)
	case Phaser:
		runPhaser(r, cfg)
	case Completion:
		runCompletion(r, cfg)
	default:
		return nil, fmt.Errorf("unknown rendezvous primitive %d", int(primitive))
	}
	return r.finish(), nil
}

// runLatch counts workers that got past the start signal before it was
// given as "early".
func runLatch(r *run, cfg *Config) {
	rc := cfg.Rendezvous
	start := syncx.NewLatch(1)
	done := syncx.NewLatch(rc.Workers)
	var started atomic.Bool

	eg := &errgroup.Group{}
	for i := range rc.Workers {
		r.spawn(eg, fmt.Sprintf("worker-%d", i), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			log.Debug("waiting for start signal")
			if err := start.Wait(ctx); err != nil {
				return err
			}
			if !started.Load() {
				r.add("early", 1)
			}
			if err := delay.Sleep(ctx, pace); err != nil {
				return err
			}
			r.add("completed", 1)
			done.CountDown()
			log.WithField("remaining", done.Count()).Debug("finished work")
			return nil
		})
	}
	r.spawn(eg, "coordinator", func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
		if err := delay.Sleep(ctx, pace); err != nil {
			return err
		}
		log.Debug("starting workers")
		started.Store(true)
		start.CountDown()
		if err := done.Wait(ctx); err != nil {
			return err
		}
		r.set("released", 1)
		log.Debug("every worker finished")
		return nil
	})

	r.join(eg, cfg.Timeout)
}

// runBarrier counts a worker released into a generation other than its
// own phase as "outOfPhase".
func runBarrier(r *run, cfg *Config) error {
	rc := cfg.Rendezvous
	b, err := syncx.NewBarrier(rc.Workers, func(generation int) {
		r.add("generations", 1)
		r.log.WithField("generation", generation).Debug("every worker reached the barrier")
	})
	if err != nil {
		return err
	}

	eg := &errgroup.Group{}
	for i := range rc.Workers {
		r.spawn(eg, fmt.Sprintf("worker-%d", i), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			for phase := range rc.Phases {
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				log.WithField("phase", phase).Debug("waiting at barrier")
				generation, err := b.Await(ctx)
				if err != nil {
					return err
				}
				if generation != phase {
					r.add("outOfPhase", 1)
				}
			}
			r.add("completed", 1)
			return nil
		})
	}

	r.join(eg, cfg.Timeout)
	return nil
}

// runExchanger has the consumer check that it receives the items in
// order and the producer check the acknowledgements.
func runExchanger(r *run, cfg *Config) {
	rc := cfg.Rendezvous
	var ex syncx.Exchanger[string]

	eg := &errgroup.Group{}
	r.spawn(eg, "producer", func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
		for i := 1; i <= rc.Exchanges; i++ {
			if err := delay.Sleep(ctx, pace); err != nil {
				return err
			}
			ack, err := ex.Exchange(ctx, fmt.Sprintf("item-%d", i))
			if err != nil {
				return err
			}
			if ack != fmt.Sprintf("ack-%d", i) {
				r.add("mismatched", 1)
			}
			log.WithField("received", ack).Debug("exchanged")
		}
		return nil
	})
	r.spawn(eg, "consumer", func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
		for i := 1; i <= rc.Exchanges; i++ {
			item, err := ex.Exchange(ctx, fmt.Sprintf("ack-%d", i))
			if err != nil {
				return err
			}
			if item != fmt.Sprintf("item-%d", i) {
				r.add("mismatched", 1)
			}
			r.add("exchanged", 1)
			log.WithField("received", item).Debug("exchanged")
			if err := delay.Sleep(ctx, pace); err != nil {
				return err
			}
		}
		return nil
	})

	r.join(eg, cfg.Timeout)
}

// runPhaser registers every worker before it starts, so that no phase
// can advance without it.
func runPhaser(r *run, cfg *Config) {
	rc := cfg.Rendezvous
	ph := syncx.NewPhaser(1)

	eg := &errgroup.Group{}
	for i := range rc.Workers {
		if _, err := ph.Register(); err != nil {
			// Unreachable: the coordinator has not deregistered yet.
			panic(err)
		}
		r.spawn(eg, fmt.Sprintf("worker-%d", i), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			defer ph.ArriveAndDeregister()
			for phase := range rc.Phases {
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				log.WithField("phase", phase).Debug("arrived")
				next, err := ph.ArriveAndAwait(ctx)
				if err != nil {
					return err
				}
				if next <= phase {
					r.add("outOfPhase", 1)
				}
			}
			r.add("completed", 1)
			return nil
		})
	}
	r.spawn(eg, "coordinator", func(ctx context.Context, _ delay.Source, log *logrus.Entry) error {
		defer ph.ArriveAndDeregister()
		for range rc.Phases {
			phase, err := ph.ArriveAndAwait(ctx)
			if err != nil {
				return err
			}
			r.raise("phases", phase)
			log.WithField("phase", phase).Debug("phase advanced")
		}
		return nil
	})

	r.join(eg, cfg.Timeout)
	if ph.Terminated() {
		r.set("terminated", 1)
	}
}

// runCompletion bounds the pool at one task per worker.
func runCompletion(r *run, cfg *Config) {
	rc := cfg.Rendezvous
	results := make(chan int, rc.Tasks)
	var inFlight atomic.Int32

	pool := &errgroup.Group{}
	pool.SetLimit(rc.Workers)
	eg := &errgroup.Group{}
	r.spawn(eg, "submitter", func(ctx context.Context, _ delay.Source, log *logrus.Entry) error {
		for task := range rc.Tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Go blocks while the pool is full.
			r.spawn(pool, fmt.Sprintf("task-%d", task), func(ctx context.Context, pace delay.Source, _ *logrus.Entry) error {
				r.raise("maxInFlight", int(inFlight.Add(1)))
				defer inFlight.Add(-1)
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				results <- task
				return nil
			})
			log.WithField("task", task).Debug("submitted")
		}
		return nil
	})
	r.spawn(eg, "collector", func(ctx context.Context, _ delay.Source, log *logrus.Entry) error {
		for range rc.Tasks {
			select {
			case task := <-results:
				r.add("collected", 1)
				log.WithField("task", task).Debug("collected")
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	r.join(eg, cfg.Timeout)
	r.join(pool, cfg.Timeout)
}

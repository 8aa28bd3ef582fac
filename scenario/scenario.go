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
Package scenario drives the coordinators with concurrent actors.

Each Run function constructs one coordinator with the requested
strategy, starts its actors, paces them with the configured delay
strategy, and bounds the join with a timeout. The outcome is returned
as a [Report]; a run that had to be canceled is reported as stuck
rather than as an error. Errors are returned only when the run could
not be set up.

Progress is logged through logrus. Wait and state-change events from
the coordinators are logged at debug level.
*/
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/field-eng-coordination/barber"
	"github.com/cockroachdb/field-eng-coordination/boundedbuf"
	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/dining"
	"github.com/cockroachdb/field-eng-coordination/lockorder"
	"github.com/cockroachdb/field-eng-coordination/record"
	"github.com/cockroachdb/field-eng-coordination/syncx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// The scenario names.
const (
	Barber        = "barber"
	BoundedBuffer = "buffer"
	Deadlock      = "deadlock"
	Dining        = "dining"
	Rendezvous    = "rendezvous"
	SharedRecord  = "record"
)

// Scenarios lists every scenario name, in the order RunAll runs them.
var Scenarios = []string{BoundedBuffer, SharedRecord, Deadlock, Dining, Barber, Rendezvous}

// ErrUnknownScenario is returned from Run for an unknown name.
var ErrUnknownScenario = errors.New("unknown scenario")

// Strategies returns the strategy names accepted by the scenario.
func Strategies(scenario string) ([]string, error) {
	var ret []string
	switch scenario {
	case Barber:
		for _, s := range barber.Strategies {
			ret = append(ret, s.String())
		}
	case BoundedBuffer:
		for _, s := range boundedbuf.Strategies {
			ret = append(ret, s.String())
		}
	case Deadlock:
		for _, s := range lockorder.Strategies {
			ret = append(ret, s.String())
		}
	case Dining:
		for _, s := range dining.Strategies {
			ret = append(ret, s.String())
		}
	case Rendezvous:
		for _, p := range Primitives {
			ret = append(ret, p.String())
		}
	case SharedRecord:
		for _, s := range record.Strategies {
			ret = append(ret, s.String())
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownScenario, scenario)
	}
	return ret, nil
}

// Run runs the named scenario with the named strategy, or with every
// strategy in turn if the strategy is empty.
func Run(
	ctx context.Context, cfg *Config, scenario, strategy string, logger *logrus.Entry,
) ([]*Report, error) {
	names := []string{strategy}
	if strategy == "" {
		var err error
		if names, err = Strategies(scenario); err != nil {
			return nil, err
		}
	}

	var ret []*Report
	for _, name := range names {
		rep, err := runOne(ctx, cfg, scenario, name, logger)
		if err != nil {
			return ret, err
		}
		ret = append(ret, rep)
	}
	return ret, nil
}

func runOne(
	ctx context.Context, cfg *Config, scenario, strategy string, logger *logrus.Entry,
) (*Report, error) {
	switch scenario {
	case Barber:
		s, err := barber.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		return RunBarber(ctx, cfg, s, logger)
	case BoundedBuffer:
		s, err := boundedbuf.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		return RunBoundedBuffer(ctx, cfg, s, logger)
	case Deadlock:
		s, err := lockorder.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		return RunDeadlock(ctx, cfg, s, logger)
	case Dining:
		s, err := dining.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		return RunDining(ctx, cfg, s, logger)
	case Rendezvous:
		p, err := ParsePrimitive(strategy)
		if err != nil {
			return nil, err
		}
		return RunRendezvous(ctx, cfg, p, logger)
	case SharedRecord:
		s, err := record.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		return RunSharedRecord(ctx, cfg, s, logger)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownScenario, scenario)
	}
}

// RunAll runs every scenario with every strategy, one at a time.
func RunAll(ctx context.Context, cfg *Config, logger *logrus.Entry) ([]*Report, error) {
	var ret []*Report
	for _, scenario := range Scenarios {
		reps, err := Run(ctx, cfg, scenario, "", logger)
		ret = append(ret, reps...)
		if err != nil {
			return ret, err
		}
	}
	return ret, nil
}

// RunBoundedBuffer connects producers and consumers through a bounded
// buffer. Producer p emits the values p*items+1 through (p+1)*items.
func RunBoundedBuffer(
	ctx context.Context, cfg *Config, strategy boundedbuf.Strategy, logger *logrus.Entry,
) (*Report, error) {
	r, err := newRun(ctx, cfg, BoundedBuffer, strategy.String(), logger)
	if err != nil {
		return nil, err
	}
	bc := cfg.BoundedBuffer

	buf, err := boundedbuf.New[int](strategy, bc.Capacity, &boundedbuf.Events{
		OnWait: func(op boundedbuf.Op, count int) {
			r.add(op.String()+"Waits", 1)
			r.log.WithFields(logrus.Fields{"op": op, "count": count}).Debug("waiting")
		},
	})
	if err != nil {
		return nil, err
	}

	// Values are checked for order only when a single producer feeds a
	// single consumer.
	checkOrder := bc.Producers == 1 && bc.Consumers == 1

	eg := &errgroup.Group{}
	for p := range bc.Producers {
		r.spawn(eg, fmt.Sprintf("producer-%d", p), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			for i := 1; i <= bc.Items; i++ {
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				item := p*bc.Items + i
				if err := buf.Produce(ctx, item); err != nil {
					return err
				}
				r.add("produced", 1)
				log.WithFields(logrus.Fields{"item": item, "count": buf.Len()}).Debug("produced")
			}
			return nil
		})
	}

	total := bc.Producers * bc.Items
	for c := range bc.Consumers {
		share := total / bc.Consumers
		if c < total%bc.Consumers {
			share++
		}
		r.spawn(eg, fmt.Sprintf("consumer-%d", c), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			last := 0
			for range share {
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				item, err := buf.Consume(ctx)
				if err != nil {
					return err
				}
				r.add("consumed", 1)
				if checkOrder && item != last+1 {
					r.add("outOfOrder", 1)
				}
				last = item
				log.WithFields(logrus.Fields{"item": item, "count": buf.Len()}).Debug("consumed")
			}
			return nil
		})
	}

	r.join(eg, cfg.Timeout)
	r.set("remaining", buf.Len())
	return r.finish(), nil
}

// RunSharedRecord runs readers and writers against a shared counter.
// Each write increments the counter.
func RunSharedRecord(
	ctx context.Context, cfg *Config, strategy record.Strategy, logger *logrus.Entry,
) (*Report, error) {
	r, err := newRun(ctx, cfg, SharedRecord, strategy.String(), logger)
	if err != nil {
		return nil, err
	}
	rc := cfg.SharedRecord

	rec, err := record.New(strategy, 0, &record.Events{
		OnReadStart: func(readers int) { r.raise("maxReaders", readers) },
		OnWrite: func(readers int) {
			if readers != 0 {
				r.add("overlaps", 1)
			}
		},
		OnWriteWait: func() { r.log.Debug("writer waiting") },
	})
	if err != nil {
		return nil, err
	}

	eg := &errgroup.Group{}
	for i := range rc.Readers {
		r.spawn(eg, fmt.Sprintf("reader-%d", i), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			for range rc.Reads {
				var paceErr error
				if err := rec.View(ctx, func(value int) {
					log.WithField("value", value).Debug("reading")
					// Reading takes as long as the pacing says.
					paceErr = delay.Sleep(ctx, pace)
				}); err != nil {
					return err
				}
				if paceErr != nil {
					return paceErr
				}
				r.add("reads", 1)
			}
			return nil
		})
	}
	for i := range rc.Writers {
		r.spawn(eg, fmt.Sprintf("writer-%d", i), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			for range rc.Writes {
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				if err := rec.Update(ctx, func(value int) int {
					log.WithField("value", value+1).Debug("writing")
					return value + 1
				}); err != nil {
					return err
				}
				r.add("writes", 1)
			}
			return nil
		})
	}

	r.join(eg, cfg.Timeout)
	if value, err := rec.Read(ctx); err == nil {
		r.set("value", value)
	}
	return r.finish(), nil
}

// RunDeadlock has two actors take two resources in opposite orders.
// After taking its first resource, each actor waits up to the hold
// time for the other to take its own, which forces the circular wait
// when the strategy permits one.
func RunDeadlock(
	ctx context.Context, cfg *Config, strategy lockorder.Strategy, logger *logrus.Entry,
) (*Report, error) {
	r, err := newRun(ctx, cfg, Deadlock, strategy.String(), logger)
	if err != nil {
		return nil, err
	}
	dc := cfg.Deadlock

	first := syncx.NewResource("resource", 1)
	second := syncx.NewResource("resource", 2)
	plans := map[string][]*syncx.Resource{
		"actor-1": {first, second},
		"actor-2": {second, first},
	}
	if err := lockorder.CheckOrder(strategy, plans); err != nil {
		r.set("cycles", 1)
		r.log.WithError(err).Warn("acquisition order admits a deadlock")
	}

	everyone := make(chan struct{})
	var once sync.Once
	var count atomic.Int32
	acq := &lockorder.Acquirer{
		Events: &lockorder.Events{
			OnAcquired: func(actor string, res *syncx.Resource) {
				r.log.WithFields(logrus.Fields{"actor": actor, "resource": res}).Debug("acquired")
			},
			OnTimeout: func(actor string, res *syncx.Resource) {
				r.add("timeouts", 1)
				r.log.WithFields(logrus.Fields{"actor": actor, "resource": res}).Info("gave up")
			},
			OnWait: func(actor string, res *syncx.Resource) {
				r.log.WithFields(logrus.Fields{
					"actor":    actor,
					"holder":   res.Holder(),
					"resource": res,
				}).Debug("waiting")
			},
		},
		Strategy: strategy,
		Timeout:  dc.LockTimeout,
		Use: func(ctx context.Context, actor string, res *syncx.Resource) error {
			if res != lockorder.Order(strategy, plans[actor])[0] {
				return nil
			}
			if int(count.Add(1)) == len(plans) {
				once.Do(func() { close(everyone) })
			}
			timer := time.NewTimer(dc.Hold)
			defer timer.Stop()
			select {
			case <-everyone:
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	}

	eg := &errgroup.Group{}
	for actor, plan := range plans {
		r.spawn(eg, actor, func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			err := acq.Do(ctx, actor, plan, func(ctx context.Context) error {
				log.Info("holding both resources")
				r.add("completed", 1)
				return delay.Sleep(ctx, pace)
			})
			if errors.Is(err, syncx.ErrTimeout) {
				// A timeout is the expected failure mode of the strategy.
				log.WithError(err).Info("released partial holdings")
				return nil
			}
			return err
		})
	}

	r.join(eg, dc.JoinTimeout)
	return r.finish(), nil
}

// RunDining seats actors at a table. Each thinks, eats and repeats until
// it has eaten its meals.
func RunDining(
	ctx context.Context, cfg *Config, strategy dining.Strategy, logger *logrus.Entry,
) (*Report, error) {
	r, err := newRun(ctx, cfg, Dining, strategy.String(), logger)
	if err != nil {
		return nil, err
	}
	dc := cfg.Dining

	// The callback runs under the table's lock, which serializes access
	// to the mirror.
	mirror := make([]dining.State, dc.Seats)
	table, err := dining.New(strategy, dc.Seats, &dining.Events{
		OnStateChange: func(seat int, from, to dining.State) {
			mirror[seat] = to
			if to == dining.Eating {
				left, right := (seat+dc.Seats-1)%dc.Seats, (seat+1)%dc.Seats
				if mirror[left] == dining.Eating || mirror[right] == dining.Eating {
					r.add("adjacentEating", 1)
				}
			}
			r.log.WithFields(logrus.Fields{"seat": seat, "from": from, "to": to}).Debug("state change")
		},
	})
	if err != nil {
		return nil, err
	}

	eg := &errgroup.Group{}
	for seat := range dc.Seats {
		r.spawn(eg, fmt.Sprintf("seat-%d", seat), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			for range dc.Meals {
				if err := delay.Sleep(ctx, pace); err != nil {
					return err
				}
				if err := table.Pickup(ctx, seat); err != nil {
					return err
				}
				log.WithField("meals", table.Meals(seat)).Debug("eating")
				err := delay.Sleep(ctx, pace)
				table.Putdown(seat)
				if err != nil {
					return err
				}
				r.add("meals", 1)
			}
			return nil
		})
	}

	r.join(eg, cfg.Timeout)
	starved := 0
	for seat := range dc.Seats {
		if table.Meals(seat) < dc.Meals {
			starved++
		}
	}
	r.set("starved", starved)
	return r.finish(), nil
}

// RunBarber starts a barber and sends customers to the shop. Once every
// customer has been served, turned away or has walked out, the shop is
// closed and the barber is joined.
func RunBarber(
	ctx context.Context, cfg *Config, strategy barber.Strategy, logger *logrus.Entry,
) (*Report, error) {
	r, err := newRun(ctx, cfg, Barber, strategy.String(), logger)
	if err != nil {
		return nil, err
	}
	bc := cfg.Barber

	shop, err := barber.New(strategy, bc.Chairs, &barber.Events{
		OnSeated: func(customer, waiting int) {
			r.raise("maxWaiting", waiting)
			r.log.WithFields(logrus.Fields{"customer": customer, "waiting": waiting}).Debug("seated")
		},
		OnServe: func(customer int) {
			r.log.WithField("customer", customer).Debug("cutting")
		},
		OnSleep: func() {
			r.add("naps", 1)
			r.log.Debug("barber sleeping")
		},
		OnTurnedAway: func(customer int) {
			r.log.WithField("customer", customer).Debug("no free chair")
		},
	})
	if err != nil {
		return nil, err
	}

	barberGroup := &errgroup.Group{}
	r.spawn(barberGroup, "barber", func(ctx context.Context, pace delay.Source, _ *logrus.Entry) error {
		return shop.Serve(ctx, func(ctx context.Context, _ int) error {
			return delay.Sleep(ctx, pace)
		})
	})

	customers := &errgroup.Group{}
	for i := 1; i <= bc.Customers; i++ {
		r.spawn(customers, fmt.Sprintf("customer-%d", i), func(ctx context.Context, pace delay.Source, log *logrus.Entry) error {
			if err := delay.Sleep(ctx, pace); err != nil {
				return err
			}
			outcome, err := shop.Visit(ctx, i)
			switch outcome {
			case barber.Served:
				r.add("served", 1)
			case barber.TurnedAway:
				r.add("turnedAway", 1)
			case barber.WalkedOut:
				r.add("walkedOut", 1)
			}
			log.WithField("outcome", outcome).Debug("left the shop")
			return err
		})
	}

	// The barber is joined only once no customer remains in flight.
	r.join(customers, cfg.Timeout)
	shop.Close()
	r.join(barberGroup, cfg.Timeout)
	return r.finish(), nil
}

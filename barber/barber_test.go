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
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNew(t *testing.T) {
	r := require.New(t)
	for _, s := range Strategies {
		_, err := New(s, 0, nil)
		r.ErrorIs(err, ErrChairs)

		shop, err := New(s, 3, nil)
		r.NoError(err)
		r.Equal(3, shop.Chairs())
		r.Zero(shop.Waiting())
		r.False(shop.Sleeping())

		parsed, err := ParseStrategy(s.String())
		r.NoError(err)
		r.Equal(s, parsed)
	}
	_, err := New(Strategy(-1), 3, nil)
	r.Error(err)
	_, err = ParseStrategy("bogus")
	r.Error(err)
	r.Equal("turned away", TurnedAway.String())
}

// Customers beyond the number of chairs are turned away without
// blocking. Seated customers are served once the barber starts.
func TestTurnedAwayWhenFull(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			shop, err := New(s, 2, nil)
			r.NoError(err)

			eg := &errgroup.Group{}
			for customer := range 2 {
				eg.Go(func() error {
					outcome, err := shop.Visit(ctx, customer)
					if err == nil && outcome != Served {
						err = errors.New("not served")
					}
					return err
				})
			}
			r.Eventually(func() bool { return shop.Waiting() == 2 }, 5*time.Second, time.Millisecond)

			outcome, err := shop.Visit(ctx, 2)
			r.NoError(err)
			r.Equal(TurnedAway, outcome)

			served := make(chan error, 1)
			go func() { served <- shop.Serve(ctx, nil) }()
			r.NoError(eg.Wait())

			shop.Close()
			shop.Close()
			r.NoError(<-served)

			outcome, err = shop.Visit(ctx, 3)
			r.NoError(err)
			r.Equal(TurnedAway, outcome)

			// A second barber finds the shop closed too.
			r.NoError(shop.Serve(ctx, nil))
		})
	}
}

// Randomly paced customers against a slow barber. Every customer is
// either served or turned away, and the waiting room never overflows.
func TestSmoke(t *testing.T) {
	const chairs = 3
	const customers = 40

	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()

			var overflow, servedEvents, turnedEvents atomic.Int32
			shop, err := New(s, chairs, &Events{
				OnSeated: func(_, waiting int) {
					if waiting > chairs {
						overflow.Add(1)
					}
				},
				OnServe:      func(int) { servedEvents.Add(1) },
				OnTurnedAway: func(int) { turnedEvents.Add(1) },
			})
			r.NoError(err)

			served := make(chan error, 1)
			go func() {
				served <- shop.Serve(ctx, func(ctx context.Context, _ int) error {
					if shop.Waiting() > chairs {
						overflow.Add(1)
					}
					time.Sleep(time.Duration(rand.IntN(500)) * time.Microsecond)
					return nil
				})
			}()

			var servedCount, turnedCount atomic.Int32
			eg := &errgroup.Group{}
			for customer := range customers {
				eg.Go(func() error {
					time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
					outcome, err := shop.Visit(ctx, customer)
					if err != nil {
						return err
					}
					switch outcome {
					case Served:
						servedCount.Add(1)
					case TurnedAway:
						turnedCount.Add(1)
					default:
						return errors.New("unexpected outcome")
					}
					return nil
				})
			}
			r.NoError(eg.Wait())

			shop.Close()
			select {
			case err := <-served:
				r.NoError(err)
			case <-time.After(5 * time.Second):
				r.Fail("barber did not stop after closing")
			}

			r.Zero(overflow.Load())
			r.Equal(int32(customers), servedCount.Load()+turnedCount.Load())
			r.Equal(servedCount.Load(), servedEvents.Load())
			r.Equal(turnedCount.Load(), turnedEvents.Load())
			r.Positive(servedCount.Load())
		})
	}
}

// Closing the shop lets the barber finish the customers already
// waiting before Serve returns.
func TestCloseDrains(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			shop, err := New(s, 3, nil)
			r.NoError(err)

			eg := &errgroup.Group{}
			for customer := range 3 {
				eg.Go(func() error {
					outcome, err := shop.Visit(ctx, customer)
					if err == nil && outcome != Served {
						err = errors.New("not served")
					}
					return err
				})
			}
			r.Eventually(func() bool { return shop.Waiting() == 3 }, 5*time.Second, time.Millisecond)
			shop.Close()

			var cuts atomic.Int32
			r.NoError(shop.Serve(ctx, func(context.Context, int) error {
				cuts.Add(1)
				return nil
			}))
			r.NoError(eg.Wait())
			r.Equal(int32(3), cuts.Load())
			r.Zero(shop.Waiting())
		})
	}
}

func TestSleeping(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var sleeps atomic.Int32
			shop, err := New(s, 1, &Events{
				OnSleep: func() { sleeps.Add(1) },
			})
			r.NoError(err)

			served := make(chan error, 1)
			go func() { served <- shop.Serve(ctx, nil) }()
			r.Eventually(shop.Sleeping, 5*time.Second, time.Millisecond)

			outcome, err := shop.Visit(ctx, 1)
			r.NoError(err)
			r.Equal(Served, outcome)
			r.Eventually(shop.Sleeping, 5*time.Second, time.Millisecond)
			r.GreaterOrEqual(sleeps.Load(), int32(2))

			shop.Close()
			r.NoError(<-served)
			r.False(shop.Sleeping())
		})
	}
}

// A customer that gives up while waiting is never served.
func TestWalkout(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var walkouts atomic.Int32
			var servedCustomers []int
			shop, err := New(s, 2, &Events{
				OnServe:   func(customer int) { servedCustomers = append(servedCustomers, customer) },
				OnWalkout: func(int) { walkouts.Add(1) },
			})
			r.NoError(err)

			impatient, cancelImpatient := context.WithCancel(ctx)
			type result struct {
				outcome Outcome
				err     error
			}
			left := make(chan result, 1)
			go func() {
				outcome, err := shop.Visit(impatient, 1)
				left <- result{outcome, err}
			}()
			r.Eventually(func() bool { return shop.Waiting() == 1 }, 5*time.Second, time.Millisecond)
			cancelImpatient()
			res := <-left
			r.Equal(WalkedOut, res.outcome)
			r.ErrorIs(res.err, context.Canceled)
			r.Equal(int32(1), walkouts.Load())

			if s == Queue {
				// The chair stays taken until the barber reaches it.
				r.Equal(1, shop.Waiting())
			} else {
				r.Zero(shop.Waiting())
			}

			served := make(chan error, 1)
			go func() { served <- shop.Serve(ctx, nil) }()
			outcome, err := shop.Visit(ctx, 2)
			r.NoError(err)
			r.Equal(Served, outcome)
			shop.Close()
			r.NoError(<-served)
			r.Equal([]int{2}, servedCustomers)
		})
	}
}

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

package boundedbuf

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNew(t *testing.T) {
	r := require.New(t)

	_, err := New[int](Monitor, 0, nil)
	r.ErrorIs(err, ErrCapacity)
	_, err = New[int](Strategy(42), 1, nil)
	r.ErrorContains(err, "unknown buffer strategy")

	for _, s := range Strategies {
		parsed, err := ParseStrategy(s.String())
		r.NoError(err)
		r.Equal(s, parsed)

		buf, err := New[string](s, 4, nil)
		r.NoError(err)
		r.Equal(4, buf.Cap())
		r.Zero(buf.Len())
	}
	_, err = ParseStrategy("bogus")
	r.Error(err)
	r.Equal("Strategy(42)", Strategy(42).String())
}

// A single producer emits 1..9 into a buffer of capacity 3 while a
// single consumer takes nine items.
func TestInOrder(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			buf, err := New[int](s, 3, nil)
			r.NoError(err)

			before := runtime.NumGoroutine()
			var consumed []int
			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				for i := 1; i <= 9; i++ {
					if err := buf.Produce(egCtx, i); err != nil {
						return err
					}
				}
				return nil
			})
			eg.Go(func() error {
				for range 9 {
					item, err := buf.Consume(egCtx)
					if err != nil {
						return err
					}
					consumed = append(consumed, item)
				}
				return nil
			})
			r.NoError(eg.Wait())
			r.Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}, consumed)
			r.Zero(buf.Len())

			// Neither actor, nor anything they started, is left behind.
			r.Eventually(func() bool {
				return runtime.NumGoroutine() <= before
			}, 5*time.Second, time.Millisecond)
		})
	}
}

// Many producers and consumers contend for a small buffer. Every item
// must be consumed exactly once and the occupancy must stay in range.
func TestSmoke(t *testing.T) {
	const producers = 8
	const consumers = 6
	const perProducer = 300
	const capacity = 4

	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var violations atomic.Int32
			check := func(count int) {
				if count < 0 || count > capacity {
					violations.Add(1)
				}
			}
			buf, err := New[int](s, capacity, &Events{
				OnConsume: check,
				OnProduce: check,
				OnWait:    func(_ Op, count int) { check(count) },
			})
			r.NoError(err)

			var mu sync.Mutex
			var seen []int
			total := producers * perProducer

			eg, egCtx := errgroup.WithContext(ctx)
			for p := range producers {
				eg.Go(func() error {
					for i := range perProducer {
						if err := buf.Produce(egCtx, p*perProducer+i); err != nil {
							return err
						}
					}
					return nil
				})
			}
			var remaining atomic.Int32
			remaining.Store(int32(total))
			for range consumers {
				eg.Go(func() error {
					for remaining.Add(-1) >= 0 {
						item, err := buf.Consume(egCtx)
						if err != nil {
							return err
						}
						mu.Lock()
						seen = append(seen, item)
						mu.Unlock()
					}
					return nil
				})
			}
			r.NoError(eg.Wait())

			r.Zero(violations.Load())
			r.Zero(buf.Len())
			r.Len(seen, total)
			sort.Ints(seen)
			for i, v := range seen {
				r.Equal(i, v)
			}
		})
	}
}

func TestProduceBlocksWhileFull(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			waits := make(chan Op, 16)
			buf, err := New[int](s, 1, &Events{
				OnWait: func(op Op, _ int) { waits <- op },
			})
			r.NoError(err)
			r.NoError(buf.Produce(ctx, 1))

			done := make(chan error, 1)
			go func() { done <- buf.Produce(ctx, 2) }()

			// Wait until the producer reports that it is blocked.
			r.Equal(OpProduce, <-waits)
			select {
			case <-done:
				r.Fail("produce should block while the buffer is full")
			case <-time.After(20 * time.Millisecond):
			}

			item, err := buf.Consume(ctx)
			r.NoError(err)
			r.Equal(1, item)
			r.NoError(<-done)

			item, err = buf.Consume(ctx)
			r.NoError(err)
			r.Equal(2, item)
		})
	}
}

func TestCancel(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			buf, err := New[int](s, 2, nil)
			r.NoError(err)

			// Consume from an empty buffer gives up without side effects.
			short, cancelShort := context.WithTimeout(ctx, 10*time.Millisecond)
			_, err = buf.Consume(short)
			cancelShort()
			r.ErrorIs(err, context.DeadlineExceeded)
			r.Zero(buf.Len())

			r.NoError(buf.Produce(ctx, 1))
			r.NoError(buf.Produce(ctx, 2))

			// Produce into a full buffer gives up without side effects.
			canceled, cancelNow := context.WithCancel(ctx)
			errCh := make(chan error, 1)
			go func() { errCh <- buf.Produce(canceled, 3) }()
			time.Sleep(5 * time.Millisecond)
			cancelNow()
			r.ErrorIs(<-errCh, context.Canceled)
			r.Equal(2, buf.Len())

			// The lock must have been released.
			for _, expect := range []int{1, 2} {
				item, err := buf.Consume(ctx)
				r.NoError(err)
				r.Equal(expect, item)
			}
			r.Zero(buf.Len())
		})
	}
}

// A canceled consumer must not swallow the wakeup for a live one.
func TestCancelDoesNotLoseWakeup(t *testing.T) {
	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			r := require.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var waiting atomic.Int32
			buf, err := New[int](s, 1, &Events{
				OnWait: func(Op, int) { waiting.Add(1) },
			})
			r.NoError(err)

			doomed, cancelDoomed := context.WithCancel(ctx)
			doomedErr := make(chan error, 1)
			go func() {
				_, err := buf.Consume(doomed)
				doomedErr <- err
			}()
			live := make(chan int, 1)
			go func() {
				item, err := buf.Consume(ctx)
				if err == nil {
					live <- item
				}
			}()
			r.Eventually(func() bool { return waiting.Load() == 2 },
				5*time.Second, time.Millisecond)

			r.NoError(buf.Produce(ctx, 7))
			cancelDoomed()

			// Either the doomed consumer got the item before it was
			// canceled, or the live consumer must receive it.
			if err := <-doomedErr; err != nil {
				r.ErrorIs(err, context.Canceled)
				select {
				case item := <-live:
					r.Equal(7, item)
				case <-ctx.Done():
					r.Fail("live consumer never woke")
				}
			}
		})
	}
}

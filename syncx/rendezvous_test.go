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
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLatch(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	r.NoError(NewLatch(0).Wait(ctx))
	r.NoError(NewLatch(-1).Wait(ctx))

	l := NewLatch(3)
	const waiters = 4
	eg, egCtx := errgroup.WithContext(ctx)
	var released atomic.Int32
	for range waiters {
		eg.Go(func() error {
			if err := l.Wait(egCtx); err != nil {
				return err
			}
			released.Add(1)
			return nil
		})
	}

	l.CountDown()
	l.CountDown()
	r.Equal(1, l.Count())
	select {
	case <-l.Done():
		r.Fail("latch opened early")
	case <-time.After(10 * time.Millisecond):
	}
	r.Zero(released.Load())

	l.CountDown()
	r.NoError(eg.Wait())
	r.Equal(int32(waiters), released.Load())

	// Counting down an open latch is a no-op.
	l.CountDown()
	r.Zero(l.Count())
}

func TestLatchCancel(t *testing.T) {
	r := require.New(t)

	l := NewLatch(1)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Wait(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		r.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		r.Fail("Wait did not observe cancellation")
	}
	r.Equal(1, l.Count())

	// The abandoned wait must not affect later waiters.
	l.CountDown()
	r.NoError(l.Wait(context.Background()))
}

func TestBarrierGenerations(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	_, err := NewBarrier(0, nil)
	r.ErrorIs(err, ErrParties)

	const parties = 4
	const rounds = 5
	var actions []int
	var phase atomic.Int32
	b, err := NewBarrier(parties, func(generation int) {
		// Runs exactly once per generation, before anyone is released.
		actions = append(actions, generation)
		phase.Add(1)
	})
	r.NoError(err)
	r.Equal(parties, b.Parties())

	eg := &errgroup.Group{}
	seen := make([][]int, parties)
	lagged := make([]bool, parties)
	for p := range parties {
		eg.Go(func() error {
			for round := range rounds {
				gen, err := b.Await(ctx)
				if err != nil {
					return err
				}
				seen[p] = append(seen[p], gen)
				// No party may observe a generation that has not tripped.
				if int(phase.Load()) <= round {
					lagged[p] = true
				}
			}
			return nil
		})
	}
	r.NoError(eg.Wait())

	r.Equal([]int{0, 1, 2, 3, 4}, actions)
	for p := range parties {
		r.Equal([]int{0, 1, 2, 3, 4}, seen[p])
		r.False(lagged[p])
	}
	r.Equal(rounds, b.Generation())
	r.Zero(b.Waiting())
}

func TestBarrierBroken(t *testing.T) {
	r := require.New(t)

	b, err := NewBarrier(3, nil)
	r.NoError(err)

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Await(context.Background())
		errCh <- err
	}()
	r.Eventually(func() bool { return b.Waiting() == 1 }, 5*time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancelCh := make(chan error, 1)
	go func() {
		_, err := b.Await(ctx)
		cancelCh <- err
	}()
	r.Eventually(func() bool { return b.Waiting() == 2 }, 5*time.Second, time.Millisecond)
	cancel()

	r.ErrorIs(<-cancelCh, context.Canceled)
	r.ErrorIs(<-errCh, ErrBrokenBarrier)

	// The barrier moves on to a fresh generation.
	r.Equal(1, b.Generation())
	r.Zero(b.Waiting())

	eg := &errgroup.Group{}
	gens := make([]int, 3)
	for i := range gens {
		eg.Go(func() (err error) {
			gens[i], err = b.Await(context.Background())
			return err
		})
	}
	r.NoError(eg.Wait())
	r.Equal([]int{1, 1, 1}, gens)
}

func TestExchanger(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	var ex Exchanger[string]
	const rounds = 3
	eg := &errgroup.Group{}
	var acked []string
	eg.Go(func() error {
		for i := range rounds {
			got, err := ex.Exchange(ctx, fmt.Sprintf("data-%d", i+1))
			if err != nil {
				return err
			}
			acked = append(acked, got)
		}
		return nil
	})
	var received []string
	eg.Go(func() error {
		for i := range rounds {
			got, err := ex.Exchange(ctx, fmt.Sprintf("ack-%d", i+1))
			if err != nil {
				return err
			}
			received = append(received, got)
		}
		return nil
	})
	r.NoError(eg.Wait())
	r.Equal([]string{"data-1", "data-2", "data-3"}, received)
	r.Equal([]string{"ack-1", "ack-2", "ack-3"}, acked)
}

func TestExchangerCancel(t *testing.T) {
	r := require.New(t)

	var ex Exchanger[int]
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := ex.Exchange(ctx, 1)
	r.ErrorIs(err, context.DeadlineExceeded)

	// The withdrawn offer must not be seen by the next pair.
	eg := &errgroup.Group{}
	var a, b int
	eg.Go(func() (err error) { a, err = ex.Exchange(context.Background(), 2); return })
	eg.Go(func() (err error) { b, err = ex.Exchange(context.Background(), 3); return })
	r.NoError(eg.Wait())
	r.Equal(3, a)
	r.Equal(2, b)
}

func TestPhaser(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	// The coordinator is registered up front; the workers register
	// themselves.
	p := NewPhaser(1)
	const workers = 3
	var mu sync.Mutex
	var log []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		log = append(log, s)
	}

	eg := &errgroup.Group{}
	for range workers {
		_, err := p.Register()
		r.NoError(err)
		eg.Go(func() error {
			record("init")
			if _, err := p.ArriveAndAwait(ctx); err != nil {
				return err
			}
			record("process")
			if _, err := p.ArriveAndAwait(ctx); err != nil {
				return err
			}
			p.ArriveAndDeregister()
			return nil
		})
	}
	r.Equal(workers+1, p.Parties())

	phase, err := p.ArriveAndAwait(ctx)
	r.NoError(err)
	r.Equal(1, phase)
	mu.Lock()
	r.Len(log, workers)
	mu.Unlock()

	phase, err = p.ArriveAndAwait(ctx)
	r.NoError(err)
	r.Equal(2, phase)
	mu.Lock()
	r.Len(log, 2*workers)
	mu.Unlock()

	p.ArriveAndDeregister()
	r.NoError(eg.Wait())
	r.True(p.Terminated())
	r.Zero(p.Parties())

	_, err = p.Register()
	r.ErrorIs(err, ErrTerminated)
	phase, err = p.AwaitAdvance(ctx, p.Phase())
	r.NoError(err)
	r.Equal(3, phase)
}

func TestPhaserCancel(t *testing.T) {
	r := require.New(t)

	p := NewPhaser(2)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	phase, err := p.ArriveAndAwait(ctx)
	r.ErrorIs(err, context.DeadlineExceeded)
	r.Zero(phase)

	// The arrival stands, so one more arrival advances the phase.
	r.Zero(p.Arrive())
	r.Equal(1, p.Phase())
	r.Panics(func() { NewPhaser(0).Arrive() })
}

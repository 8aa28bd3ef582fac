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

// Package delay provides the pauses that actors take between steps of
// a scenario. Pauses exist only to vary the interleaving of concurrent
// actors; the [None] strategy removes them entirely so that tests run
// deterministically.
package delay

import (
	"context"
	"time"

	gr "github.com/sethvargo/go-retry"
)

// A Source produces successive pause durations. It has the same shape
// as a go-retry Backoff, so those may be used directly. Next returns
// true once the source is exhausted.
type Source interface {
	Next() (time.Duration, bool)
}

// A Strategy constructs a fresh Source for each actor. Sources are not
// safe for concurrent use, so actors must not share them.
type Strategy func() Source

// None returns a Strategy that never pauses.
func None() Strategy {
	return func() Source { return none{} }
}

// Constant returns a Strategy that always pauses for the duration. A
// non-positive duration is equivalent to [None].
func Constant(d time.Duration) Strategy {
	if d <= 0 {
		return None()
	}
	return func() Source { return gr.NewConstant(d) }
}

// Jitter returns a Strategy that pauses for mean +/- spread, never
// less than zero.
func Jitter(mean, spread time.Duration) Strategy {
	if spread <= 0 {
		return Constant(mean)
	}
	if mean <= 0 {
		// go-retry rejects a zero base; start from the spread and let
		// the jitter pull it back towards zero.
		mean = spread
	}
	return func() Source { return gr.WithJitter(spread, gr.NewConstant(mean)) }
}

// Pause sleeps once using a fresh Source from the strategy. A nil
// strategy does not pause.
func Pause(ctx context.Context, strategy Strategy) error {
	if strategy == nil {
		return ctx.Err()
	}
	return Sleep(ctx, strategy())
}

// Sleep waits for the next duration from the source. It returns early
// with the context's error if the context is done. An exhausted source
// or a zero duration does not wait.
func Sleep(ctx context.Context, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, stop := src.Next()
	if stop || d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type none struct{}

func (none) Next() (time.Duration, bool) { return 0, false }

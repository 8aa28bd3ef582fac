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
	"sync"
)

// An Exchanger pairs up goroutines so that each pair swaps a value.
// The zero value is ready to use.
type Exchanger[T any] struct {
	mu struct {
		sync.Mutex
		offer *offer[T] // A party waiting for a partner.
	}
}

type offer[T any] struct {
	reply chan T
	value T
}

// Exchange offers the value and blocks until another goroutine calls
// Exchange, returning the partner's value. If the context is done
// before a partner arrives, the offer is withdrawn and the context's
// error is returned. Once a partner has taken the offer, the exchange
// completes regardless of the context.
func (e *Exchanger[T]) Exchange(ctx context.Context, value T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	e.mu.Lock()
	if waiting := e.mu.offer; waiting != nil {
		e.mu.offer = nil
		e.mu.Unlock()
		waiting.reply <- value
		return waiting.value, nil
	}
	mine := &offer[T]{reply: make(chan T, 1), value: value}
	e.mu.offer = mine
	e.mu.Unlock()

	select {
	case got := <-mine.reply:
		return got, nil
	case <-ctx.Done():
	}

	e.mu.Lock()
	withdrawn := e.mu.offer == mine
	if withdrawn {
		e.mu.offer = nil
	}
	e.mu.Unlock()
	if withdrawn {
		return zero, ctx.Err()
	}
	return <-mine.reply, nil
}

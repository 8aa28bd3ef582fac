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

// Wait is an interruptible version of [sync.Cond.Wait]. The caller
// must hold c.L. Wait atomically releases c.L and suspends until the
// condition is signaled or the context is done; c.L is held again when
// Wait returns.
//
// As with [sync.Cond.Wait], the caller cannot assume that its
// predicate holds when Wait returns and must re-check it in a loop:
//
//	for !predicate() {
//		if err := syncx.Wait(ctx, c); err != nil {
//			return err
//		}
//	}
//
// A non-nil error is the context's error. Cancellation broadcasts on
// c, so other waiters must tolerate spurious wakeups.
func Wait(ctx context.Context, c *sync.Cond) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ctx.Done() == nil {
		c.Wait()
		return nil
	}
	// The callback cannot broadcast until c.Wait has released c.L, so
	// the wakeup cannot be lost.
	stop := context.AfterFunc(ctx, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	c.Wait()
	stop()
	return ctx.Err()
}

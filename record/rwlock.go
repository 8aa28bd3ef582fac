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

package record

import (
	"context"
	"sync"
)

// rwLocker delegates to a sync.RWMutex.
type rwLocker struct {
	mu sync.RWMutex
}

var _ locker = (*rwLocker)(nil)

func newRWLocker() *rwLocker { return &rwLocker{} }

func (l *rwLocker) lockRead(ctx context.Context) error {
	if l.mu.TryRLock() {
		return nil
	}
	return acquire(ctx, l.mu.RLock, l.mu.RUnlock)
}

func (l *rwLocker) lockWrite(ctx context.Context) error {
	if l.mu.TryLock() {
		return nil
	}
	return acquire(ctx, l.mu.Lock, l.mu.Unlock)
}

func (l *rwLocker) tryLockWrite() bool { return l.mu.TryLock() }

func (l *rwLocker) unlockRead() { l.mu.RUnlock() }

func (l *rwLocker) unlockWrite() { l.mu.Unlock() }

// acquire calls lock from a helper goroutine so that the caller can
// stop waiting once the context is done. An abandoned acquisition is
// released as soon as it completes, so the lock is not leaked.
func acquire(ctx context.Context, lock, unlock func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	acquired := make(chan struct{})
	go func() {
		lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		go func() {
			<-acquired
			unlock()
		}()
		return ctx.Err()
	}
}

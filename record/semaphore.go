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

	"golang.org/x/sync/semaphore"
)

// semaphoreLocker runs the reader-count protocol with two binary
// semaphores instead of locks: mutex protects the count and resource
// excludes writers.
type semaphoreLocker struct {
	mutex    *semaphore.Weighted
	readers  int // Guarded by mutex.
	resource *semaphore.Weighted
}

var _ locker = (*semaphoreLocker)(nil)

func newSemaphoreLocker() *semaphoreLocker {
	return &semaphoreLocker{
		mutex:    semaphore.NewWeighted(1),
		resource: semaphore.NewWeighted(1),
	}
}

func (l *semaphoreLocker) lockRead(ctx context.Context) error {
	if err := l.mutex.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.mutex.Release(1)
	if l.readers == 0 {
		if err := l.resource.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	l.readers++
	return nil
}

func (l *semaphoreLocker) lockWrite(ctx context.Context) error {
	return l.resource.Acquire(ctx, 1)
}

func (l *semaphoreLocker) tryLockWrite() bool { return l.resource.TryAcquire(1) }

func (l *semaphoreLocker) unlockRead() {
	_ = l.mutex.Acquire(context.Background(), 1)
	defer l.mutex.Release(1)
	l.readers--
	if l.readers == 0 {
		l.resource.Release(1)
	}
}

func (l *semaphoreLocker) unlockWrite() { l.resource.Release(1) }

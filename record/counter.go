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

	"github.com/cockroachdb/field-eng-coordination/syncx"
)

// counterLocker implements the reader-count protocol. The exclusion
// lock is held either by one writer or, collectively, by the group of
// active readers: the reader that raises the count from zero acquires
// it and the reader that lowers the count to zero releases it.
type counterLocker struct {
	countMu   *syncx.Mutex
	exclusion *syncx.Mutex
	readers   int // Guarded by countMu.
}

var _ locker = (*counterLocker)(nil)

func newCounterLocker() *counterLocker {
	return &counterLocker{
		countMu:   syncx.NewMutex(),
		exclusion: syncx.NewMutex(),
	}
}

func (l *counterLocker) lockRead(ctx context.Context) error {
	if err := l.countMu.Lock(ctx); err != nil {
		return err
	}
	defer l.countMu.Unlock()
	if l.readers == 0 {
		// Later readers queue behind countMu until writers are out.
		if err := l.exclusion.Lock(ctx); err != nil {
			return err
		}
	}
	l.readers++
	return nil
}

func (l *counterLocker) lockWrite(ctx context.Context) error {
	return l.exclusion.Lock(ctx)
}

func (l *counterLocker) tryLockWrite() bool { return l.exclusion.TryLock() }

func (l *counterLocker) unlockRead() {
	// Leaving cannot be canceled; the count must be decremented.
	_ = l.countMu.Lock(context.Background())
	defer l.countMu.Unlock()
	l.readers--
	if l.readers == 0 {
		l.exclusion.Unlock()
	}
}

func (l *counterLocker) unlockWrite() { l.exclusion.Unlock() }

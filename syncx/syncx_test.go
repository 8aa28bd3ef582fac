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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexLockUnlock(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	m := NewMutex()
	r.False(m.Locked())
	r.NoError(m.Lock(ctx))
	r.True(m.Locked())
	r.False(m.TryLock())
	m.Unlock()
	r.False(m.Locked())
	r.True(m.TryLock())
	m.Unlock()
}

func TestMutexCancel(t *testing.T) {
	r := require.New(t)

	m := NewMutex()
	r.True(m.TryLock())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Lock(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		r.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		r.Fail("Lock did not observe cancellation")
	}

	// The abandoned acquisition must not have taken the lock.
	m.Unlock()
	r.False(m.Locked())
}

func TestMutexTimeout(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	m := NewMutex()
	r.NoError(m.LockTimeout(ctx, time.Millisecond))

	start := time.Now()
	err := m.LockTimeout(ctx, 20*time.Millisecond)
	r.ErrorIs(err, ErrTimeout)
	r.True(errors.Is(err, context.DeadlineExceeded))
	r.GreaterOrEqual(time.Since(start), 20*time.Millisecond)
	r.True(m.Locked())
}

func TestMutexHandoff(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewMutex()
	r.NoError(m.Lock(ctx))

	// A different goroutine may release the lock.
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Unlock()
	}()
	<-done
	r.NoError(m.Lock(ctx))
}

func TestMutexUnlockPanics(t *testing.T) {
	r := require.New(t)
	r.Panics(func() { NewMutex().Unlock() })
}

func TestWaitSignal(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	c := sync.NewCond(&mu)
	ready := false

	go func() {
		mu.Lock()
		ready = true
		c.Broadcast()
		mu.Unlock()
	}()

	mu.Lock()
	defer mu.Unlock()
	for !ready {
		r.NoError(Wait(ctx, c))
	}
}

func TestWaitCancel(t *testing.T) {
	r := require.New(t)

	var mu sync.Mutex
	c := sync.NewCond(&mu)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	mu.Lock()
	var err error
	for err == nil {
		err = Wait(ctx, c)
	}
	r.ErrorIs(err, context.Canceled)
	// The lock is held again on return.
	r.False(mu.TryLock())
	mu.Unlock()

	// An already-canceled context returns without waiting.
	mu.Lock()
	r.ErrorIs(Wait(ctx, c), context.Canceled)
	mu.Unlock()
}

func TestResource(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	res := NewResource("fork", 3)
	r.Equal("fork", res.Name())
	r.Equal(3, res.Index())
	r.Equal("fork#3", res.String())
	r.Empty(res.Holder())

	r.NoError(res.Acquire(ctx, "alice"))
	r.Equal("alice", res.Holder())
	r.False(res.TryAcquire("bob"))
	r.ErrorIs(res.AcquireTimeout(ctx, "bob", 5*time.Millisecond), ErrTimeout)
	r.Equal("alice", res.Holder())

	res.Release()
	r.Empty(res.Holder())
	r.True(res.TryAcquire("bob"))
	r.Equal("bob", res.Holder())
	res.Release()
}

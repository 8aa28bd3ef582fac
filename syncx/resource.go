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
	"time"
)

// A Resource is an identity-bearing exclusive asset, such as a fork on
// a dining table. It is held by at most one actor at a time. The index
// provides the global order used by ordering-based deadlock
// prevention.
type Resource struct {
	index int
	lock  *Mutex
	name  string

	mu struct {
		sync.Mutex
		holder string // Empty when free.
	}
}

// NewResource constructs a free Resource.
func NewResource(name string, index int) *Resource {
	return &Resource{
		index: index,
		lock:  NewMutex(),
		name:  name,
	}
}

// Acquire blocks until the actor holds the Resource or the context is
// done.
func (r *Resource) Acquire(ctx context.Context, actor string) error {
	if err := r.lock.Lock(ctx); err != nil {
		return err
	}
	r.setHolder(actor)
	return nil
}

// AcquireTimeout is like Acquire, but gives up after the duration with
// [ErrTimeout].
func (r *Resource) AcquireTimeout(ctx context.Context, actor string, d time.Duration) error {
	if err := r.lock.LockTimeout(ctx, d); err != nil {
		return err
	}
	r.setHolder(actor)
	return nil
}

// Holder returns the name of the actor holding the Resource, or the
// empty string if it is free.
func (r *Resource) Holder() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.holder
}

// Index returns the position of the Resource in the global order.
func (r *Resource) Index() int { return r.index }

// Name returns the name of the Resource.
func (r *Resource) Name() string { return r.name }

// Release frees the Resource. It panics if the Resource is not held.
func (r *Resource) Release() {
	r.setHolder("")
	r.lock.Unlock()
}

// String implements fmt.Stringer.
func (r *Resource) String() string {
	return fmt.Sprintf("%s#%d", r.name, r.index)
}

// TryAcquire acquires the Resource if it is free.
func (r *Resource) TryAcquire(actor string) bool {
	if !r.lock.TryLock() {
		return false
	}
	r.setHolder(actor)
	return true
}

func (r *Resource) setHolder(actor string) {
	r.mu.Lock()
	r.mu.holder = actor
	r.mu.Unlock()
}

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

package lockorder

import "github.com/cockroachdb/field-eng-coordination/syncx"

// Events provides an [Acquirer] with optional callbacks for observing
// the resources held by actors.
type Events struct {
	// OnAcquired is called once the actor holds the resource.
	OnAcquired func(actor string, r *syncx.Resource)
	// OnReleased is called after the actor has released the resource.
	OnReleased func(actor string, r *syncx.Resource)
	// OnTimeout is called when a bounded wait for the resource expires.
	OnTimeout func(actor string, r *syncx.Resource)
	// OnWait is called when the actor must block because the resource
	// is held by another actor.
	OnWait func(actor string, r *syncx.Resource)
}

func (e *Events) doAcquired(actor string, r *syncx.Resource) {
	if e != nil && e.OnAcquired != nil {
		e.OnAcquired(actor, r)
	}
}

func (e *Events) doReleased(actor string, r *syncx.Resource) {
	if e != nil && e.OnReleased != nil {
		e.OnReleased(actor, r)
	}
}

func (e *Events) doTimeout(actor string, r *syncx.Resource) {
	if e != nil && e.OnTimeout != nil {
		e.OnTimeout(actor, r)
	}
}

func (e *Events) doWait(actor string, r *syncx.Resource) {
	if e != nil && e.OnWait != nil {
		e.OnWait(actor, r)
	}
}

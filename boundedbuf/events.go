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

package boundedbuf

// Op identifies the operation reported to [Events.OnWait].
type Op int

// The operations that may wait.
const (
	OpProduce Op = iota
	OpConsume
)

func (o Op) String() string {
	if o == OpProduce {
		return "produce"
	}
	return "consume"
}

// Events provides a [Buffer] with optional callbacks to observe its
// state. The lock-based strategies invoke callbacks while holding the
// buffer's lock, so callbacks must not block or call back into the
// buffer. The Queue strategy reports the channel length after the
// operation, which may already be stale.
type Events struct {
	OnConsume func(count int)
	OnProduce func(count int)
	OnWait    func(op Op, count int)
}

func (e *Events) doConsume(count int) {
	if e != nil && e.OnConsume != nil {
		e.OnConsume(count)
	}
}

func (e *Events) doProduce(count int) {
	if e != nil && e.OnProduce != nil {
		e.OnProduce(count)
	}
}

func (e *Events) doWait(op Op, count int) {
	if e != nil && e.OnWait != nil {
		e.OnWait(op, count)
	}
}

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

// Events provides a [Record] with optional callbacks to observe
// access. The read callbacks receive the number of active readers,
// including the caller on start and excluding it on end. OnWrite
// receives the number of active readers at the moment write access was
// granted, which is always zero. OnWriteWait is called only when a
// writer cannot be admitted at once.
type Events struct {
	OnReadEnd   func(readers int)
	OnReadStart func(readers int)
	OnWrite     func(readers int)
	OnWriteWait func()
}

func (e *Events) doReadEnd(readers int) {
	if e != nil && e.OnReadEnd != nil {
		e.OnReadEnd(readers)
	}
}

func (e *Events) doReadStart(readers int) {
	if e != nil && e.OnReadStart != nil {
		e.OnReadStart(readers)
	}
}

func (e *Events) doWrite(readers int) {
	if e != nil && e.OnWrite != nil {
		e.OnWrite(readers)
	}
}

func (e *Events) doWriteWait() {
	if e != nil && e.OnWriteWait != nil {
		e.OnWriteWait()
	}
}

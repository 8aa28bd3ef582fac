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

package dining

// Events provides a [Table] with an optional callback for observing
// seats. The callback is invoked while the table's state lock is held,
// so it observes transitions in the order they happen and must not
// call back into the Table.
type Events struct {
	OnStateChange func(seat int, from, to State)
}

func (e *Events) doStateChange(seat int, from, to State) {
	if e != nil && e.OnStateChange != nil {
		e.OnStateChange(seat, from, to)
	}
}

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

package barber

// Events provides a [Shop] with optional callbacks. They may be invoked
// while the shop's internal locks are held and must not call back into
// the Shop.
type Events struct {
	// OnSeated receives the number of occupied chairs, including the
	// new customer.
	OnSeated     func(customer, waiting int)
	OnServe      func(customer int)
	OnSleep      func()
	OnTurnedAway func(customer int)
	OnWalkout    func(customer int)
}

func (e *Events) doSeated(customer, waiting int) {
	if e != nil && e.OnSeated != nil {
		e.OnSeated(customer, waiting)
	}
}

func (e *Events) doServe(customer int) {
	if e != nil && e.OnServe != nil {
		e.OnServe(customer)
	}
}

func (e *Events) doSleep() {
	if e != nil && e.OnSleep != nil {
		e.OnSleep()
	}
}

func (e *Events) doTurnedAway(customer int) {
	if e != nil && e.OnTurnedAway != nil {
		e.OnTurnedAway(customer)
	}
}

func (e *Events) doWalkout(customer int) {
	if e != nil && e.OnWalkout != nil {
		e.OnWalkout(customer)
	}
}

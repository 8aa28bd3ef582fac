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

package delay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExp(t *testing.T) {
	tests := []struct {
		name      string
		base, max time.Duration
		expected  []time.Duration
		err       string
	}{
		{
			"millis",
			time.Millisecond,
			4 * time.Millisecond,
			[]time.Duration{
				time.Millisecond,
				2 * time.Millisecond,
				4 * time.Millisecond,
				4 * time.Millisecond,
			},
			"",
		},
		{
			"seconds",
			time.Second,
			64 * time.Second,
			[]time.Duration{
				time.Second,
				2 * time.Second,
				4 * time.Second,
				8 * time.Second,
				16 * time.Second,
				32 * time.Second,
				64 * time.Second,
				64 * time.Second,
			},
			"",
		},
		{
			"uneven cap",
			3 * time.Millisecond,
			10 * time.Millisecond,
			[]time.Duration{
				3 * time.Millisecond,
				6 * time.Millisecond,
				10 * time.Millisecond,
				10 * time.Millisecond,
			},
			"",
		},
		{
			"equal bounds",
			time.Hour,
			time.Hour,
			[]time.Duration{time.Hour, time.Hour},
			"",
		},
		{
			"base greater than max",
			2 * time.Minute,
			1 * time.Minute,
			nil,
			"invalid argument",
		},
		{
			"zero base",
			0,
			time.Millisecond,
			nil,
			"invalid argument",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			strategy, err := NewExp(tt.base, tt.max, len(tt.expected))
			if tt.err != "" {
				a.ErrorContains(err, tt.err)
				return
			}
			a.NoError(err)
			src := strategy()
			for _, e := range tt.expected {
				d, stop := src.Next()
				a.False(stop)
				a.Equal(e, d)
			}
			_, stop := src.Next()
			a.True(stop)

			// Each call to the strategy starts over.
			d, stop := strategy().Next()
			a.False(stop)
			a.Equal(tt.base, d)
		})
	}
}

func TestExpUnlimited(t *testing.T) {
	a := assert.New(t)
	strategy, err := NewExp(time.Millisecond, 8*time.Millisecond, 0)
	a.NoError(err)
	src := strategy()
	for range 100 {
		_, stop := src.Next()
		a.False(stop)
	}
	d, _ := src.Next()
	a.Equal(8*time.Millisecond, d)
}

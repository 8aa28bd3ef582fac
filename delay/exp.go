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
	"errors"
	"fmt"
	"time"

	gr "github.com/sethvargo/go-retry"
)

// ErrInvalidArg is returned for pause bounds that no Strategy can
// honor.
var ErrInvalidArg = errors.New("invalid argument")

// NewExp builds a Strategy whose pauses double from base and are capped
// at maxDelay. Each actor's source is exhausted after limit pauses, at
// which point the actor stops pausing; a zero limit never exhausts.
func NewExp(base, maxDelay time.Duration, limit int) (Strategy, error) {
	switch {
	case base <= 0:
		return nil, fmt.Errorf("%w: base %s is not positive", ErrInvalidArg, base)
	case maxDelay < base:
		return nil, fmt.Errorf("%w: max %s is below base %s", ErrInvalidArg, maxDelay, base)
	case limit < 0:
		return nil, fmt.Errorf("%w: limit %d is negative", ErrInvalidArg, limit)
	}
	return func() Source {
		src := gr.WithCappedDuration(maxDelay, gr.NewExponential(base))
		if limit > 0 {
			src = gr.WithMaxRetries(uint64(limit), src)
		}
		return src
	}, nil
}

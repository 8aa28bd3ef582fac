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

package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid scenario configuration")

// The delay modes accepted by DelayConfig.
const (
	DelayNone     = "none"
	DelayConstant = "constant"
	DelayJitter   = "jitter"
	DelayExp      = "exp"
)

// Config holds the parameters of every scenario.
type Config struct {
	Barber        BarberConfig     `yaml:"barber"`
	BoundedBuffer BufferConfig     `yaml:"boundedBuffer"`
	Deadlock      DeadlockConfig   `yaml:"deadlock"`
	Delay         DelayConfig      `yaml:"delay"`
	Dining        DiningConfig     `yaml:"dining"`
	Rendezvous    RendezvousConfig `yaml:"rendezvous"`
	SharedRecord  RecordConfig     `yaml:"sharedRecord"`
	// Timeout bounds the join of each scenario's actors. Actors still
	// running when it expires are canceled and the run is reported
	// stuck.
	Timeout time.Duration `yaml:"timeout"`
}

// BarberConfig parameterizes the barber shop.
type BarberConfig struct {
	Chairs    int `yaml:"chairs"`
	Customers int `yaml:"customers"`
}

// BufferConfig parameterizes the bounded buffer. Each producer emits
// Items values; the consumers share the total between them.
type BufferConfig struct {
	Capacity  int `yaml:"capacity"`
	Consumers int `yaml:"consumers"`
	Items     int `yaml:"items"`
	Producers int `yaml:"producers"`
}

// DeadlockConfig parameterizes the ordered acquisition scenario.
type DeadlockConfig struct {
	// Hold is how long an actor holding its first resource waits for
	// the other actor to take its own first resource. It must be
	// positive, since the wait is what forces the circular wait.
	Hold time.Duration `yaml:"hold"`
	// JoinTimeout bounds the wait for both actors, replacing Timeout.
	JoinTimeout time.Duration `yaml:"joinTimeout"`
	// LockTimeout bounds each acquisition under the timeout strategy.
	LockTimeout time.Duration `yaml:"lockTimeout"`
}

// DelayConfig selects how actors pace themselves between operations.
type DelayConfig struct {
	Base   time.Duration `yaml:"base"`
	Limit  int           `yaml:"limit"`
	Max    time.Duration `yaml:"max"`
	Mean   time.Duration `yaml:"mean"`
	Mode   string        `yaml:"mode"`
	Spread time.Duration `yaml:"spread"`
}

// DiningConfig parameterizes the dining table.
type DiningConfig struct {
	Meals int `yaml:"meals"`
	Seats int `yaml:"seats"`
}

// RendezvousConfig parameterizes the rendezvous primitives. Workers
// also bounds the completion pool, which runs Tasks tasks.
type RendezvousConfig struct {
	Exchanges int `yaml:"exchanges"`
	Phases    int `yaml:"phases"`
	Tasks     int `yaml:"tasks"`
	Workers   int `yaml:"workers"`
}

// RecordConfig parameterizes the shared record. Each reader performs
// Reads reads and each writer Writes writes.
type RecordConfig struct {
	Readers int `yaml:"readers"`
	Reads   int `yaml:"reads"`
	Writers int `yaml:"writers"`
	Writes  int `yaml:"writes"`
}

// DefaultConfig returns the stock parameters. Actors do not pause, so
// runs are deterministic apart from scheduling.
func DefaultConfig() *Config {
	return &Config{
		Barber: BarberConfig{
			Chairs:    3,
			Customers: 8,
		},
		BoundedBuffer: BufferConfig{
			Capacity:  5,
			Consumers: 1,
			Items:     8,
			Producers: 1,
		},
		Deadlock: DeadlockConfig{
			Hold:        100 * time.Millisecond,
			JoinTimeout: 5 * time.Second,
			LockTimeout: 2 * time.Second,
		},
		Delay: DelayConfig{
			Mode: DelayNone,
		},
		Dining: DiningConfig{
			Meals: 3,
			Seats: 5,
		},
		Rendezvous: RendezvousConfig{
			Exchanges: 3,
			Phases:    2,
			Tasks:     5,
			Workers:   3,
		},
		SharedRecord: RecordConfig{
			Readers: 2,
			Reads:   2,
			Writers: 1,
			Writes:  1,
		},
		Timeout: 30 * time.Second,
	}
}

// Load reads a YAML configuration file. Fields absent from the file
// keep their default values. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every count is positive. The returned error
// wraps ErrInvalidConfig and describes every problem found.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, value int) {
		if value < 1 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, value))
		}
	}
	positiveDuration := func(name string, value time.Duration) {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, value))
		}
	}

	positive("barber.chairs", c.Barber.Chairs)
	positive("barber.customers", c.Barber.Customers)
	positive("boundedBuffer.capacity", c.BoundedBuffer.Capacity)
	positive("boundedBuffer.consumers", c.BoundedBuffer.Consumers)
	positive("boundedBuffer.items", c.BoundedBuffer.Items)
	positive("boundedBuffer.producers", c.BoundedBuffer.Producers)
	positiveDuration("deadlock.joinTimeout", c.Deadlock.JoinTimeout)
	positiveDuration("deadlock.lockTimeout", c.Deadlock.LockTimeout)
	positiveDuration("deadlock.hold", c.Deadlock.Hold)
	positive("dining.meals", c.Dining.Meals)
	if c.Dining.Seats < 2 {
		errs = append(errs, fmt.Errorf("dining.seats must be at least 2, got %d", c.Dining.Seats))
	}
	positive("rendezvous.exchanges", c.Rendezvous.Exchanges)
	positive("rendezvous.phases", c.Rendezvous.Phases)
	positive("rendezvous.tasks", c.Rendezvous.Tasks)
	positive("rendezvous.workers", c.Rendezvous.Workers)
	positive("sharedRecord.readers", c.SharedRecord.Readers)
	positive("sharedRecord.reads", c.SharedRecord.Reads)
	positive("sharedRecord.writers", c.SharedRecord.Writers)
	positive("sharedRecord.writes", c.SharedRecord.Writes)
	positiveDuration("timeout", c.Timeout)
	if _, err := c.Delay.Strategy(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Strategy constructs the configured delay strategy.
func (c DelayConfig) Strategy() (delay.Strategy, error) {
	switch c.Mode {
	case "", DelayNone:
		return delay.None(), nil
	case DelayConstant:
		return delay.Constant(c.Mean), nil
	case DelayJitter:
		return delay.Jitter(c.Mean, c.Spread), nil
	case DelayExp:
		s, err := delay.NewExp(c.Base, c.Max, c.Limit)
		if err != nil {
			return nil, fmt.Errorf("delay: base %s, max %s, limit %d: %w", c.Base, c.Max, c.Limit, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown delay mode %q", c.Mode)
	}
}

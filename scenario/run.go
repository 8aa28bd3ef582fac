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
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// A Report summarizes one run of a scenario.
type Report struct {
	Elapsed time.Duration
	// Failures maps an actor to the error that ended it. Failures are
	// local to the actor and do not stop the others.
	Failures map[string]string
	RunID    uuid.UUID
	Scenario string
	Stats    map[string]int
	Strategy string
	// Stuck is set if the actors did not finish before the join timeout
	// and had to be canceled.
	Stuck bool
}

// StatNames returns the keys of Stats in sorted order.
func (r *Report) StatNames() []string {
	ret := make([]string, 0, len(r.Stats))
	for name := range r.Stats {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Summary renders the statistics as a single line.
func (r *Report) Summary() string {
	var sb strings.Builder
	for i, name := range r.StatNames() {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=%d", name, r.Stats[name])
	}
	return sb.String()
}

// A run tracks the actors of one scenario and accumulates its report.
type run struct {
	cancel context.CancelFunc
	ctx    context.Context
	delay  delay.Strategy
	log    *logrus.Entry
	start  time.Time

	mu struct {
		sync.Mutex
		report *Report
	}
}

func newRun(
	ctx context.Context, cfg *Config, scenario, strategy string, logger *logrus.Entry,
) (*run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pacing, err := cfg.Delay.Strategy()
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r := &run{
		delay: pacing,
		log: logger.WithFields(logrus.Fields{
			"run":      id.String(),
			"scenario": scenario,
			"strategy": strategy,
		}),
		start: time.Now(),
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.report = &Report{
		Failures: make(map[string]string),
		RunID:    id,
		Scenario: scenario,
		Stats:    make(map[string]int),
		Strategy: strategy,
	}
	r.log.Info("starting")
	return r, nil
}

// add increments a statistic.
func (r *run) add(stat string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.report.Stats[stat] += delta
}

// raise raises a statistic to at least the value.
func (r *run) raise(stat string, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value > r.mu.report.Stats[stat] {
		r.mu.report.Stats[stat] = value
	}
}

// set overwrites a statistic.
func (r *run) set(stat string, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.report.Stats[stat] = value
}

// spawn starts an actor in the group. The actor receives its own delay
// source. An error is recorded against the actor and is not returned
// to the group, so siblings keep running.
func (r *run) spawn(
	eg *errgroup.Group, actor string, fn func(ctx context.Context, pace delay.Source, log *logrus.Entry) error,
) {
	actorLog := r.log.WithField("actor", actor)
	eg.Go(func() error {
		err := fn(r.ctx, r.delay(), actorLog)
		switch {
		case err == nil:
			actorLog.Debug("finished")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			actorLog.WithError(err).Warn("canceled")
			r.fail(actor, err)
		default:
			actorLog.WithError(err).Error("failed")
			r.fail(actor, err)
		}
		return nil
	})
}

func (r *run) fail(actor string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.report.Failures[actor] = err.Error()
}

// join waits for the group. If the timeout expires first, every actor
// of the run is canceled, the run is marked stuck, and join waits for
// the actors to unwind. It returns false if the run was stuck.
func (r *run) join(eg *errgroup.Group, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		_ = eg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
	case <-r.ctx.Done():
	}

	r.log.WithField("timeout", timeout).Warn("actors did not finish, canceling")
	r.mu.Lock()
	r.mu.report.Stuck = true
	r.mu.Unlock()
	r.cancel()
	<-done
	return false
}

// finish completes the report.
func (r *run) finish() *Report {
	r.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.mu.report
	rep.Elapsed = time.Since(r.start)
	r.log.WithFields(logrus.Fields{
		"elapsed":  rep.Elapsed,
		"failures": len(rep.Failures),
		"stuck":    rep.Stuck,
	}).Info(rep.Summary())
	return rep
}

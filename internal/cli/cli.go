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

// Package cli builds the coordinate command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/field-eng-coordination/lockorder"
	"github.com/cockroachdb/field-eng-coordination/scenario"
	"github.com/cockroachdb/field-eng-coordination/syncx"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	strategy   string
}

// state is populated before a subcommand runs.
type state struct {
	cfg    *scenario.Config
	logger *logrus.Logger
	opts   options
	out    io.Writer
}

// Command returns the root command. Reports are written to out;
// logs go to errOut.
func Command(out, errOut io.Writer) *cobra.Command {
	st := &state{out: out}
	defaults := scenario.DefaultConfig()

	root := &cobra.Command{
		Use:           "coordinate",
		Short:         "run concurrency coordination scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logrus.ParseLevel(st.opts.logLevel)
			if err != nil {
				return err
			}
			st.logger = logrus.New()
			st.logger.SetOutput(errOut)
			st.logger.SetLevel(level)
			st.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

			cfg := scenario.DefaultConfig()
			if st.opts.configPath != "" {
				if cfg, err = scenario.Load(st.opts.configPath); err != nil {
					return err
				}
			}
			applyOverrides(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			st.cfg = cfg
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&st.opts.configPath, "config", "c", "", "a YAML configuration file")
	f.StringVar(&st.opts.logLevel, "log-level", logrus.InfoLevel.String(), "the logging level")
	f.StringVarP(&st.opts.strategy, "strategy", "s", "", "run a single strategy instead of all of them")
	f.Duration("timeout", defaults.Timeout, "bound on the join of each scenario")
	f.String("delay", defaults.Delay.Mode, "pacing mode: none, constant, jitter or exp")
	f.Duration("delay-mean", defaults.Delay.Mean, "mean pause for the constant and jitter modes")
	f.Duration("delay-spread", defaults.Delay.Spread, "spread of the jitter mode")

	buffer := scenarioCommand(st, scenario.BoundedBuffer, "producers and consumers sharing a bounded buffer")
	buffer.Flags().Int("capacity", defaults.BoundedBuffer.Capacity, "buffer capacity")
	buffer.Flags().Int("consumers", defaults.BoundedBuffer.Consumers, "number of consumers")
	buffer.Flags().Int("items", defaults.BoundedBuffer.Items, "items emitted by each producer")
	buffer.Flags().Int("producers", defaults.BoundedBuffer.Producers, "number of producers")

	rec := scenarioCommand(st, scenario.SharedRecord, "readers and writers sharing a record")
	rec.Flags().Int("readers", defaults.SharedRecord.Readers, "number of readers")
	rec.Flags().Int("reads", defaults.SharedRecord.Reads, "reads performed by each reader")
	rec.Flags().Int("writers", defaults.SharedRecord.Writers, "number of writers")
	rec.Flags().Int("writes", defaults.SharedRecord.Writes, "writes performed by each writer")

	deadlock := scenarioCommand(st, scenario.Deadlock, "two actors taking two resources in opposite orders")
	deadlock.Flags().Duration("hold", defaults.Deadlock.Hold, "how long to hold the first resource")
	deadlock.Flags().Duration("join-timeout", defaults.Deadlock.JoinTimeout, "bound on the wait for both actors")
	deadlock.Flags().Duration("lock-timeout", defaults.Deadlock.LockTimeout, "bound on each acquisition")

	din := scenarioCommand(st, scenario.Dining, "actors sharing forks around a table")
	din.Flags().Int("meals", defaults.Dining.Meals, "meals eaten by each seat")
	din.Flags().Int("seats", defaults.Dining.Seats, "number of seats")

	shop := scenarioCommand(st, scenario.Barber, "customers visiting a barber shop")
	shop.Flags().Int("chairs", defaults.Barber.Chairs, "waiting room chairs")
	shop.Flags().Int("customers", defaults.Barber.Customers, "number of customers")

	rv := scenarioCommand(st, scenario.Rendezvous, "workers meeting at latches, barriers, exchangers and phasers")
	rv.Flags().Int("exchanges", defaults.Rendezvous.Exchanges, "items swapped through the exchanger")
	rv.Flags().Int("phases", defaults.Rendezvous.Phases, "phases for the barrier and phaser")
	rv.Flags().Int("tasks", defaults.Rendezvous.Tasks, "tasks submitted to the completion pool")
	rv.Flags().Int("workers", defaults.Rendezvous.Workers, "number of workers")

	all := &cobra.Command{
		Use:   "all",
		Short: "run every scenario with every strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if st.opts.strategy != "" {
				return fmt.Errorf("--strategy cannot be used with all")
			}
			reps, err := scenario.RunAll(cmd.Context(), st.cfg, logrus.NewEntry(st.logger))
			render(st.out, reps)
			return err
		},
	}

	root.AddCommand(buffer, rec, deadlock, din, shop, rv, all, graphCommand(st))
	return root
}

func scenarioCommand(st *state, name, short string) *cobra.Command {
	strategies, _ := scenario.Strategies(name)
	return &cobra.Command{
		Use:   name,
		Short: short,
		Long:  fmt.Sprintf("%s.\n\nStrategies: %s.", short, strings.Join(strategies, ", ")),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reps, err := scenario.Run(cmd.Context(), st.cfg, name, st.opts.strategy, logrus.NewEntry(st.logger))
			render(st.out, reps)
			return err
		},
	}
}

// graphCommand prints the lock-order graph of the deadlock scenario's
// plans in DOT format.
func graphCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "print the lock-order graph of the deadlock scenario",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			strategy := lockorder.Unordered
			if st.opts.strategy != "" {
				var err error
				if strategy, err = lockorder.ParseStrategy(st.opts.strategy); err != nil {
					return err
				}
			}
			first := syncx.NewResource("resource", 1)
			second := syncx.NewResource("resource", 2)
			return lockorder.WriteDOT(st.out, strategy, map[string][]*syncx.Resource{
				"actor-1": {first, second},
				"actor-2": {second, first},
			})
		},
	}
}

// applyOverrides copies explicitly set flags into the configuration.
func applyOverrides(flags *pflag.FlagSet, cfg *scenario.Config) {
	ints := map[string]*int{
		"capacity":  &cfg.BoundedBuffer.Capacity,
		"chairs":    &cfg.Barber.Chairs,
		"consumers": &cfg.BoundedBuffer.Consumers,
		"customers": &cfg.Barber.Customers,
		"exchanges": &cfg.Rendezvous.Exchanges,
		"items":     &cfg.BoundedBuffer.Items,
		"meals":     &cfg.Dining.Meals,
		"phases":    &cfg.Rendezvous.Phases,
		"producers": &cfg.BoundedBuffer.Producers,
		"readers":   &cfg.SharedRecord.Readers,
		"reads":     &cfg.SharedRecord.Reads,
		"seats":     &cfg.Dining.Seats,
		"tasks":     &cfg.Rendezvous.Tasks,
		"workers":   &cfg.Rendezvous.Workers,
		"writers":   &cfg.SharedRecord.Writers,
		"writes":    &cfg.SharedRecord.Writes,
	}
	durations := map[string]*time.Duration{
		"delay-mean":   &cfg.Delay.Mean,
		"delay-spread": &cfg.Delay.Spread,
		"hold":         &cfg.Deadlock.Hold,
		"join-timeout": &cfg.Deadlock.JoinTimeout,
		"lock-timeout": &cfg.Deadlock.LockTimeout,
		"timeout":      &cfg.Timeout,
	}

	flags.Visit(func(f *pflag.Flag) {
		if dst, ok := ints[f.Name]; ok {
			*dst, _ = flags.GetInt(f.Name)
		}
		if dst, ok := durations[f.Name]; ok {
			*dst, _ = flags.GetDuration(f.Name)
		}
		if f.Name == "delay" {
			cfg.Delay.Mode = f.Value.String()
		}
	})
}

// render writes the reports as a table.
func render(out io.Writer, reps []*scenario.Report) {
	if len(reps) == 0 {
		return
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Scenario", "Strategy", "Result", "Elapsed", "Stats", "Failures"})
	table.SetAutoWrapText(false)
	for _, rep := range reps {
		result := "complete"
		if rep.Stuck {
			result = "stuck"
		}
		table.Append([]string{
			rep.Scenario,
			rep.Strategy,
			result,
			rep.Elapsed.Round(time.Millisecond).String(),
			rep.Summary(),
			fmt.Sprint(len(rep.Failures)),
		})
	}
	table.Render()
}

// Main runs the command line and returns the process exit code.
func Main(ctx context.Context, args []string) int {
	cmd := Command(os.Stdout, os.Stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "coordinate:", err)
		return 1
	}
	return 0
}

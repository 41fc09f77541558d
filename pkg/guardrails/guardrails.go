// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package guardrails screens agent input before it reaches the language
// model and scrubs model output before it reaches the caller. Checkers
// and filters compose into a single pipeline that plugs into an agent
// through the Hook adapter.
package guardrails

import (
	"context"
	"log/slog"
)

// CheckResult is the verdict of an input checker.
type CheckResult struct {
	Blocked bool
	// Checker identifies which checker produced the verdict.
	Checker string
	// Reason is a short human-readable explanation when blocked.
	Reason string
}

// FilterResult is the outcome of running output filters over text.
type FilterResult struct {
	Text       string
	Redactions []Redaction
}

// Redaction records one substitution made by an output filter.
type Redaction struct {
	Filter   string
	Category string
	Original string
}

// InputChecker inspects user input before it is sent to the model.
type InputChecker interface {
	Name() string
	Check(ctx context.Context, input string) CheckResult
}

// OutputFilter rewrites model output, returning the filtered text and
// any redactions it applied.
type OutputFilter interface {
	Name() string
	Filter(ctx context.Context, text string) (string, []Redaction)
}

// Guardrails runs a configured set of input checkers and output
// filters. The zero value blocks nothing and filters nothing.
type Guardrails struct {
	checkers []InputChecker
	filters  []OutputFilter
	logger   *slog.Logger
}

// Option configures a Guardrails pipeline.
type Option func(*Guardrails)

// WithInputChecker appends an input checker. Checkers run in order and
// the first block wins.
func WithInputChecker(c InputChecker) Option {
	return func(g *Guardrails) {
		if c != nil {
			g.checkers = append(g.checkers, c)
		}
	}
}

// WithOutputFilter appends an output filter. Filters run in order, each
// receiving the previous filter's text.
func WithOutputFilter(f OutputFilter) Option {
	return func(g *Guardrails) {
		if f != nil {
			g.filters = append(g.filters, f)
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guardrails) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New builds a Guardrails pipeline from the given options.
func New(opts ...Option) *Guardrails {
	g := &Guardrails{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckInput runs every checker over input. The first blocking verdict
// is returned; if none block, the result is not blocked.
func (g *Guardrails) CheckInput(ctx context.Context, input string) CheckResult {
	for _, c := range g.checkers {
		res := c.Check(ctx, input)
		if res.Blocked {
			g.logger.Warn("guardrails.input.blocked",
				slog.String("checker", res.Checker),
				slog.String("reason", res.Reason))
			return res
		}
	}
	return CheckResult{}
}

// FilterOutput runs every filter over text in order and collects the
// redactions they applied.
func (g *Guardrails) FilterOutput(ctx context.Context, text string) FilterResult {
	result := FilterResult{Text: text}
	for _, f := range g.filters {
		filtered, redactions := f.Filter(ctx, result.Text)
		result.Text = filtered
		result.Redactions = append(result.Redactions, redactions...)
	}
	if len(result.Redactions) > 0 {
		g.logger.Debug("guardrails.output.redacted",
			slog.Int("redactions", len(result.Redactions)))
	}
	return result
}

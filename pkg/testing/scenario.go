// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides scenario helpers for exercising agents and
// teams in tests: a declarative scenario runner, string matchers, and
// recorders that capture model and tool traffic.
package testing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"
)

// Responder is anything that answers a prompt. Agents and teams both
// satisfy it.
type Responder interface {
	Respond(ctx context.Context, input string) (string, error)
}

// Scenario is a declarative agent test: one input, a timeout, and a
// list of expectations checked against the result.
type Scenario struct {
	name         string
	input        string
	timeout      time.Duration
	setup        []func() error
	teardown     []func() error
	expectations []Expectation
}

// Result is the outcome of running a scenario.
type Result struct {
	Output   string
	Err      error
	Duration time.Duration
	// ToolCalls lists tool invocations captured by a CallLog attached
	// via WithCallLog.
	ToolCalls []ToolCallRecord
}

// Expectation is one condition checked against a Result.
type Expectation interface {
	Check(r *Result) error
	Description() string
}

// NewScenario creates a scenario with a 30 second default timeout.
func NewScenario(name string) *Scenario {
	return &Scenario{name: name, timeout: 30 * time.Second}
}

// WithInput sets the prompt handed to the responder.
func (s *Scenario) WithInput(input string) *Scenario {
	s.input = input
	return s
}

// WithTimeout bounds the run.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// WithSetup registers a function run before the responder.
func (s *Scenario) WithSetup(fn func() error) *Scenario {
	s.setup = append(s.setup, fn)
	return s
}

// WithTeardown registers a function run after the responder, even on
// failure.
func (s *Scenario) WithTeardown(fn func() error) *Scenario {
	s.teardown = append(s.teardown, fn)
	return s
}

// Expect appends a custom expectation.
func (s *Scenario) Expect(e Expectation) *Scenario {
	s.expectations = append(s.expectations, e)
	return s
}

// ExpectOutput expects the output to satisfy the matcher.
func (s *Scenario) ExpectOutput(m Matcher) *Scenario {
	return s.Expect(expectFunc{
		check: func(r *Result) error {
			if !m.Match(r.Output) {
				return fmt.Errorf("output %q does not match: %s", r.Output, m.Description())
			}
			return nil
		},
		desc: "output " + m.Description(),
	})
}

// ExpectNoError expects the responder to succeed.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(expectFunc{
		check: func(r *Result) error {
			if r.Err != nil {
				return fmt.Errorf("unexpected error: %v", r.Err)
			}
			return nil
		},
		desc: "no error",
	})
}

// ExpectError expects a failure whose message satisfies the matcher.
func (s *Scenario) ExpectError(m Matcher) *Scenario {
	return s.Expect(expectFunc{
		check: func(r *Result) error {
			if r.Err == nil {
				return fmt.Errorf("expected error matching %s, got nil", m.Description())
			}
			if !m.Match(r.Err.Error()) {
				return fmt.Errorf("error %q does not match: %s", r.Err.Error(), m.Description())
			}
			return nil
		},
		desc: "error " + m.Description(),
	})
}

// ExpectToolCall expects the named tool to have been invoked. Requires
// a CallLog attached with WithCallLog.
func (s *Scenario) ExpectToolCall(name string) *Scenario {
	return s.Expect(expectFunc{
		check: func(r *Result) error {
			for _, record := range r.ToolCalls {
				if record.Name == name {
					return nil
				}
			}
			return fmt.Errorf("tool %q was not called", name)
		},
		desc: fmt.Sprintf("tool %q called", name),
	})
}

// ExpectNoToolCalls expects no tool invocations.
func (s *Scenario) ExpectNoToolCalls() *Scenario {
	return s.Expect(expectFunc{
		check: func(r *Result) error {
			if len(r.ToolCalls) > 0 {
				names := make([]string, len(r.ToolCalls))
				for i, record := range r.ToolCalls {
					names[i] = record.Name
				}
				return fmt.Errorf("expected no tool calls, got %v", names)
			}
			return nil
		},
		desc: "no tool calls",
	})
}

// ExpectMaxDuration expects the run to finish within d.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(expectFunc{
		check: func(r *Result) error {
			if r.Duration > d {
				return fmt.Errorf("duration %v exceeds %v", r.Duration, d)
			}
			return nil
		},
		desc: fmt.Sprintf("duration <= %v", d),
	})
}

// Run executes the scenario against the responder and checks every
// expectation, reporting failures through t.
func (s *Scenario) Run(t *testing.T, responder Responder) *Result {
	return s.run(t, responder, nil)
}

// RunWithCallLog is Run with a CallLog whose records are copied into
// the result before expectations are checked.
func (s *Scenario) RunWithCallLog(t *testing.T, responder Responder, log *CallLog) *Result {
	return s.run(t, responder, log)
}

func (s *Scenario) run(t *testing.T, responder Responder, log *CallLog) *Result {
	t.Helper()
	for _, fn := range s.setup {
		if err := fn(); err != nil {
			t.Fatalf("scenario %q setup: %v", s.name, err)
		}
	}
	defer func() {
		for _, fn := range s.teardown {
			if err := fn(); err != nil {
				t.Errorf("scenario %q teardown: %v", s.name, err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	output, err := responder.Respond(ctx, s.input)
	result := &Result{Output: output, Err: err, Duration: time.Since(start)}
	if log != nil {
		result.ToolCalls = log.Records()
	}

	for _, e := range s.expectations {
		if err := e.Check(result); err != nil {
			t.Errorf("scenario %q: expectation %q: %v", s.name, e.Description(), err)
		}
	}
	return result
}

type expectFunc struct {
	check func(r *Result) error
	desc  string
}

func (e expectFunc) Check(r *Result) error { return e.check(r) }

func (e expectFunc) Description() string { return e.desc }

// Matcher matches strings in expectations.
type Matcher interface {
	Match(s string) bool
	Description() string
}

type matcherFunc struct {
	match func(string) bool
	desc  string
}

func (m matcherFunc) Match(s string) bool { return m.match(s) }

func (m matcherFunc) Description() string { return m.desc }

// Contains matches strings containing substr.
func Contains(substr string) Matcher {
	return matcherFunc{
		match: func(s string) bool { return strings.Contains(s, substr) },
		desc:  fmt.Sprintf("contains %q", substr),
	}
}

// Equals matches exactly.
func Equals(expected string) Matcher {
	return matcherFunc{
		match: func(s string) bool { return s == expected },
		desc:  fmt.Sprintf("equals %q", expected),
	}
}

// Regex matches against a compiled regular expression.
func Regex(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return matcherFunc{
		match: re.MatchString,
		desc:  fmt.Sprintf("matches %q", pattern),
	}
}

// HasPrefix matches strings starting with prefix.
func HasPrefix(prefix string) Matcher {
	return matcherFunc{
		match: func(s string) bool { return strings.HasPrefix(s, prefix) },
		desc:  fmt.Sprintf("has prefix %q", prefix),
	}
}

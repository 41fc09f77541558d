// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"fmt"
	"regexp"
)

// TopicFilter blocks input touching configured off-limits topics. It
// serves double duty as an input checker and an output filter: blocked
// topics are rejected on the way in and redacted on the way out.
type TopicFilter struct {
	topics map[string][]*regexp.Regexp
}

// NewTopicFilter returns an empty filter; add topics with BlockTopic.
func NewTopicFilter() *TopicFilter {
	return &TopicFilter{topics: make(map[string][]*regexp.Regexp)}
}

// BlockTopic registers a topic with the patterns that identify it.
func (t *TopicFilter) BlockTopic(topic string, exprs ...string) error {
	var patterns []*regexp.Regexp
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("guardrails: compile topic pattern for %q: %w", topic, err)
		}
		patterns = append(patterns, re)
	}
	t.topics[topic] = append(t.topics[topic], patterns...)
	return nil
}

// Name implements InputChecker and OutputFilter.
func (t *TopicFilter) Name() string { return "topic" }

// Check implements InputChecker.
func (t *TopicFilter) Check(_ context.Context, input string) CheckResult {
	for topic, patterns := range t.topics {
		for _, re := range patterns {
			if re.MatchString(input) {
				return CheckResult{
					Blocked: true,
					Checker: t.Name(),
					Reason:  fmt.Sprintf("input touches blocked topic %q", topic),
				}
			}
		}
	}
	return CheckResult{}
}

// Filter implements OutputFilter.
func (t *TopicFilter) Filter(_ context.Context, text string) (string, []Redaction) {
	var redactions []Redaction
	for topic, patterns := range t.topics {
		for _, re := range patterns {
			text = re.ReplaceAllStringFunc(text, func(match string) string {
				redactions = append(redactions, Redaction{
					Filter:   t.Name(),
					Category: topic,
					Original: match,
				})
				return "[REDACTED]"
			})
		}
	}
	return text, redactions
}

// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"fmt"
	"regexp"
)

// defaultInjectionPatterns match common prompt-injection phrasings.
// They catch the obvious attempts; a determined adversary needs a
// model-based classifier layered on top.
var defaultInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions?|programming|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you|above|before)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|in)\s+\w+\s*(mode)?`),
	regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be)\s+(not\s+)?(an?\s+)?(ai|assistant|unrestricted)`),
	regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(your|the)\s+(system\s+)?(prompt|instructions?)`),
	regexp.MustCompile(`(?i)\bDAN\s+mode\b`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)(override|bypass|disable)\s+(your\s+)?(safety|security|content)\s+(filters?|guidelines?|rules?)`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:\s*`),
	regexp.MustCompile(`(?i)\[?system\]?\s*:\s*you\s+(are|must|will)`),
}

// InjectionDetector blocks input that matches known prompt-injection
// phrasings.
type InjectionDetector struct {
	patterns []*regexp.Regexp
}

// NewInjectionDetector returns a detector with the default pattern set.
func NewInjectionDetector() *InjectionDetector {
	return &InjectionDetector{patterns: defaultInjectionPatterns}
}

// AddPattern compiles expr and appends it to the detector's pattern
// set.
func (d *InjectionDetector) AddPattern(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("guardrails: compile injection pattern: %w", err)
	}
	d.patterns = append(d.patterns, re)
	return nil
}

// Name implements InputChecker.
func (d *InjectionDetector) Name() string { return "prompt_injection" }

// Check implements InputChecker.
func (d *InjectionDetector) Check(_ context.Context, input string) CheckResult {
	for _, re := range d.patterns {
		if match := re.FindString(input); match != "" {
			return CheckResult{
				Blocked: true,
				Checker: d.Name(),
				Reason:  fmt.Sprintf("input matched injection pattern %q", match),
			}
		}
	}
	return CheckResult{}
}

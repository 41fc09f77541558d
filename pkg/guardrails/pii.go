// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"regexp"
	"strings"
)

// PIIMode selects how the PIIFilter rewrites a match.
type PIIMode int

const (
	// PIIMask keeps the last four characters and masks the rest.
	PIIMask PIIMode = iota
	// PIIRedact replaces the match with a [CATEGORY] placeholder.
	PIIRedact
)

type piiPattern struct {
	category string
	re       *regexp.Regexp
}

var defaultPIIPatterns = []piiPattern{
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"EMAIL", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"PHONE", regexp.MustCompile(`\b(?:\+?1[ -.]?)?\(?\d{3}\)?[ -.]?\d{3}[ -.]?\d{4}\b`)},
	{"IP_ADDRESS", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
}

// PIIFilter scrubs personally identifiable information from model
// output.
type PIIFilter struct {
	mode     PIIMode
	patterns []piiPattern
}

// NewPIIFilter returns a filter with the default pattern set.
func NewPIIFilter(mode PIIMode) *PIIFilter {
	return &PIIFilter{mode: mode, patterns: defaultPIIPatterns}
}

// Name implements OutputFilter.
func (f *PIIFilter) Name() string { return "pii" }

// Filter implements OutputFilter.
func (f *PIIFilter) Filter(_ context.Context, text string) (string, []Redaction) {
	var redactions []Redaction
	for _, p := range f.patterns {
		text = p.re.ReplaceAllStringFunc(text, func(match string) string {
			redactions = append(redactions, Redaction{
				Filter:   f.Name(),
				Category: p.category,
				Original: match,
			})
			return f.replacement(p.category, match)
		})
	}
	return text, redactions
}

func (f *PIIFilter) replacement(category, match string) string {
	switch f.mode {
	case PIIMask:
		keep := 4
		if len(match) <= keep {
			return strings.Repeat("*", len(match))
		}
		return strings.Repeat("*", len(match)-keep) + match[len(match)-keep:]
	default:
		return "[" + category + "]"
	}
}

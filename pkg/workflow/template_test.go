// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import "testing"

func TestRenderTemplate(t *testing.T) {
	ctx := NewContext()
	ctx.Set("name", "ada")
	ctx.Set("a", 1)
	ctx.Set("b", true)

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"substitution", "hello {{name}}", "hello ada"},
		{"missing key", "hello {{ghost}}!", "hello !"},
		{"adjacent placeholders", "{{a}}{{b}}", "1true"},
		{"whitespace in key", "{{ name }}", "ada"},
		{"no placeholders", "plain text", "plain text"},
		{"unterminated braces", "hello {{name", "hello {{name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := renderTemplate(tc.template, ctx); got != tc.want {
				t.Fatalf("renderTemplate(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestStringifyObjectTakesJSONForm(t *testing.T) {
	ctx := NewContext()
	ctx.Set("obj", map[string]any{"k": "v"})
	if got := renderTemplate("{{obj}}", ctx); got != `{"k":"v"}` {
		t.Fatalf("rendered = %q", got)
	}
}

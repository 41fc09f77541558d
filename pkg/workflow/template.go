// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// renderTemplate substitutes {{key}} placeholders with values from the run
// state. A missing key renders as the empty string; a non-string value
// renders as its JSON form. Nested braces and escaping are not supported.
func renderTemplate(template string, ctx *Context) string {
	var out strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			out.WriteString(rest)
			return out.String()
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:open])
		key := strings.TrimSpace(rest[open+2 : open+2+end])
		if value, ok := ctx.Get(key); ok {
			out.WriteString(stringify(value))
		}
		rest = rest[open+2+end+2:]
	}
}

// stringify renders a state value for template substitution. Strings pass
// through unquoted; everything else takes its JSON form.
func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}

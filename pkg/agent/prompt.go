// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"strings"
)

const retrieverTopK = 3

// buildSystemPrompt composes the base instructions with the tool
// catalogue, schema hints, and any retrieved context for query.
func (a *Agent) buildSystemPrompt(ctx context.Context, query string) string {
	var b strings.Builder
	b.WriteString(a.systemPrompt)

	if a.tools.Len() > 0 {
		b.WriteString("\n\nYou have access to the following tools:\n")
		for _, desc := range a.tools.Describe() {
			b.WriteString("- ")
			b.WriteString(desc.Name)
			if desc.Description != "" {
				b.WriteString(": ")
				b.WriteString(desc.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(a.inputSchema) > 0 {
		b.WriteString("\nUser input follows this JSON schema:\n")
		b.Write(a.inputSchema)
		b.WriteString("\n")
	}
	if len(a.outputSchema) > 0 {
		b.WriteString("\nYour final reply must follow this JSON schema:\n")
		b.Write(a.outputSchema)
		b.WriteString("\n")
	}

	if a.retriever != nil && query != "" {
		snippets, err := a.retriever.Retrieve(ctx, query, retrieverTopK)
		if err != nil {
			a.logger.Warn("agent.retrieve.failed", "agent", a.name, "error", err.Error())
		} else if len(snippets) > 0 {
			b.WriteString("\nRelevant context:\n")
			for _, snippet := range snippets {
				b.WriteString("- ")
				b.WriteString(snippet)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

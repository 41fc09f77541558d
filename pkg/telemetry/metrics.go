// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys used on Braid spans and metrics.
const (
	AttrAgentName    = "braid.agent.name"
	AttrTeamName     = "braid.team.name"
	AttrTeamMember   = "braid.team.member"
	AttrWorkflowName = "braid.workflow.name"
	AttrWorkflowRun  = "braid.workflow.run_id"
	AttrNodeType     = "braid.workflow.node_type"
	AttrToolName     = "braid.tool.name"
	AttrErrorCode    = "braid.error.code"
)

// RunMetrics tracks agent runs, tool invocations, and workflow outcomes.
type RunMetrics struct {
	agentRuns     metric.Int64Counter
	agentFailures metric.Int64Counter
	toolCalls     metric.Int64Counter
	toolDuration  metric.Float64Histogram
	workflowRuns  metric.Int64Counter
}

// NewRunMetrics registers the Braid run counters on the global meter.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter("braid/runtime")

	agentRuns, err := meter.Int64Counter(
		"braid.agent.runs",
		metric.WithDescription("Completed agent respond calls"),
	)
	if err != nil {
		return nil, err
	}
	agentFailures, err := meter.Int64Counter(
		"braid.agent.failures",
		metric.WithDescription("Failed agent respond calls by error code"),
	)
	if err != nil {
		return nil, err
	}
	toolCalls, err := meter.Int64Counter(
		"braid.tool.calls",
		metric.WithDescription("Tool invocations by tool name"),
	)
	if err != nil {
		return nil, err
	}
	toolDuration, err := meter.Float64Histogram(
		"braid.tool.duration_ms",
		metric.WithDescription("Tool invocation latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}
	workflowRuns, err := meter.Int64Counter(
		"braid.workflow.runs",
		metric.WithDescription("Workflow runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		agentRuns:     agentRuns,
		agentFailures: agentFailures,
		toolCalls:     toolCalls,
		toolDuration:  toolDuration,
		workflowRuns:  workflowRuns,
	}, nil
}

// RecordAgentRun counts one completed respond call.
func (m *RunMetrics) RecordAgentRun(ctx context.Context, agentName string) {
	m.agentRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAgentName, agentName),
	))
}

// RecordAgentFailure counts one failed respond call.
func (m *RunMetrics) RecordAgentFailure(ctx context.Context, agentName, code string) {
	m.agentFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAgentName, agentName),
		attribute.String(AttrErrorCode, code),
	))
}

// RecordToolCall counts one tool invocation with its latency.
func (m *RunMetrics) RecordToolCall(ctx context.Context, toolName string, elapsed time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String(AttrToolName, toolName),
		attribute.Bool("braid.tool.success", success),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// RecordWorkflowRun counts one workflow run by outcome.
func (m *RunMetrics) RecordWorkflowRun(ctx context.Context, workflowName string, success bool) {
	m.workflowRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrWorkflowName, workflowName),
		attribute.Bool("braid.workflow.success", success),
	))
}

// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestInitStdoutAndShutdown(t *testing.T) {
	shutdown, err := Init("braid-test", "0.0.1")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitOTLPRequiresEndpoint(t *testing.T) {
	_, err := InitWithConfig("braid-test", "0.0.1", Config{Exporter: "otlp"})
	if err == nil {
		t.Fatal("expected error for missing otlp endpoint")
	}
}

func TestInitUnknownExporter(t *testing.T) {
	_, err := InitWithConfig("braid-test", "0.0.1", Config{Exporter: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestConfigureSlogFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "json")
	logger.Debug("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("unexpected log output: %s", out)
	}

	buf.Reset()
	logger = ConfigureSlog(&buf, "warn", "text")
	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info record passed a warn-level handler: %s", buf.String())
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		if got := logLevel(in).String(); got != want {
			t.Fatalf("logLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRunMetrics(t *testing.T) {
	metrics, err := NewRunMetrics()
	if err != nil {
		t.Fatalf("NewRunMetrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordAgentRun(ctx, "alice")
	metrics.RecordAgentFailure(ctx, "alice", "PROTOCOL_ERROR")
	metrics.RecordToolCall(ctx, "echo", 3*time.Millisecond, true)
	metrics.RecordWorkflowRun(ctx, "release", true)
}

// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ToolRefresher is implemented by tool sources whose catalogue can drift,
// such as MCP clients with a discovery cache.
type ToolRefresher interface {
	RefreshTools(ctx context.Context) (int, error)
}

// AddToolRefresher registers a refresher to be swept on the configured
// interval.
func (r *Local) AddToolRefresher(refresher ToolRefresher) {
	if refresher == nil {
		return
	}
	r.refreshers = append(r.refreshers, refresher)
}

// SetRefreshInterval defines how often tool catalogues are refreshed.
// Zero disables the sweeper.
func (r *Local) SetRefreshInterval(interval time.Duration) {
	r.refreshInterval = interval
}

// SetRefreshTimeout defines a per-sweep timeout.
func (r *Local) SetRefreshTimeout(timeout time.Duration) {
	r.refreshTimeout = timeout
}

func (r *Local) startRefreshSweeper() {
	if r.refreshInterval <= 0 || len(r.refreshers) == 0 {
		return
	}
	if r.refreshCancel != nil {
		r.stopRefreshSweeper()
	}
	initRefreshMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.refreshCancel = cancel
	r.refreshDone = done
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.refreshInterval)
		defer ticker.Stop()
		r.logger.Info("runtime.refresh.sweeper.start",
			slog.Duration("interval", r.refreshInterval),
			slog.Int("refreshers", len(r.refreshers)),
		)
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("runtime.refresh.sweeper.stop")
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

func (r *Local) sweep(ctx context.Context) {
	sweepCtx := ctx
	var cancel context.CancelFunc
	if r.refreshTimeout > 0 {
		sweepCtx, cancel = context.WithTimeout(ctx, r.refreshTimeout)
		defer cancel()
	}
	sweepCtx, span := otel.Tracer("braid/runtime").Start(sweepCtx, "Runtime.ToolRefresh",
		trace.WithAttributes(attribute.Int("refreshers", len(r.refreshers))),
	)
	defer span.End()

	for _, refresher := range r.refreshers {
		name := refresherName(refresher)
		start := time.Now()
		count, err := refresher.RefreshTools(sweepCtx)
		elapsed := time.Since(start)
		refreshLatencyMs.Record(ctx, float64(elapsed.Seconds()*1000), metric.WithAttributes(
			attribute.String("refresher", name),
		))
		if err != nil {
			refreshErrorCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("refresher", name),
			))
			span.RecordError(err)
			r.logger.Warn("runtime.refresh.failed",
				slog.String("refresher", name),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
			continue
		}
		refreshCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("refresher", name),
		))
		r.logger.Debug("runtime.refresh.complete",
			slog.String("refresher", name),
			slog.Int("tools", count),
			slog.Duration("elapsed", elapsed),
		)
	}
}

func (r *Local) stopRefreshSweeper() {
	if r.refreshCancel == nil {
		return
	}
	r.refreshCancel()
	if r.refreshDone != nil {
		<-r.refreshDone
	}
	r.refreshCancel = nil
	r.refreshDone = nil
}

var (
	refreshMetricsOnce  sync.Once
	refreshCounter      metric.Int64Counter
	refreshErrorCounter metric.Int64Counter
	refreshLatencyMs    metric.Float64Histogram
)

func initRefreshMetrics() {
	refreshMetricsOnce.Do(func() {
		meter := otel.Meter("braid/runtime")
		refreshCounter, _ = meter.Int64Counter("braid.runtime.refresh.count")
		refreshErrorCounter, _ = meter.Int64Counter("braid.runtime.refresh.error.count")
		refreshLatencyMs, _ = meter.Float64Histogram("braid.runtime.refresh.latency_ms")
	})
}

func refresherName(refresher ToolRefresher) string {
	if refresher == nil {
		return "unknown"
	}
	return fmt.Sprintf("%T", refresher)
}

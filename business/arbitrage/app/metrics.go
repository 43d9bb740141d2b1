package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

type engineMetrics struct {
	cycles     metric.Int64Counter
	orders     metric.Int64Counter
	spread     metric.Float64Histogram
	pathLength metric.Int64Histogram
	cycleTime  metric.Float64Histogram
	skipped    metric.Int64Counter
	openOrders metric.Int64UpDownCounter
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter(meterName)
	m := &engineMetrics{}
	var err error

	m.cycles, err = meter.Int64Counter(
		"arbitrage_cycles_total",
		metric.WithDescription("Strategy cycles by outcome"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	m.orders, err = meter.Int64Counter(
		"arbitrage_orders_total",
		metric.WithDescription("Order actions taken by the engine"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	m.spread, err = meter.Float64Histogram(
		"arbitrage_spread_ratio",
		metric.WithDescription("Spread of the best path against the market price"),
	)
	if err != nil {
		return nil, err
	}

	m.pathLength, err = meter.Int64Histogram(
		"arbitrage_path_length",
		metric.WithDescription("Number of nodes on the best path"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, err
	}

	m.cycleTime, err = meter.Float64Histogram(
		"arbitrage_cycle_duration_ms",
		metric.WithDescription("Time to fetch market data and run all strategies"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.skipped, err = meter.Int64Counter(
		"arbitrage_cycles_skipped_total",
		metric.WithDescription("Cycles skipped because market data was unavailable"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	m.openOrders, err = meter.Int64UpDownCounter(
		"arbitrage_open_orders",
		metric.WithDescription("Orders currently tracked by the engine"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *engineMetrics) recordDecision(ctx context.Context, d *domain.Decision) {
	m.cycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(d.Outcome)),
		attribute.String("held", string(d.Held)),
	))

	if len(d.Path) > 0 {
		m.pathLength.Record(ctx, int64(len(d.Path)))
	}
	if !d.Spread.IsZero() {
		f, _ := d.Spread.Float64()
		m.spread.Record(ctx, f, metric.WithAttributes(attribute.String("product", d.Product.String())))
	}

	var action string
	switch d.Outcome {
	case domain.OutcomeOrderPlaced:
		action = "placed"
		m.openOrders.Add(ctx, 1)
	case domain.OutcomeOrderRejected:
		action = "rejected"
	case domain.OutcomeOrderCancelled:
		action = "cancel_requested"
	case domain.OutcomeOrderCleared:
		action = "cleared"
		m.openOrders.Add(ctx, -1)
	}
	if action != "" {
		m.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// KBMetrics records knowledge base activity with OTel instruments. It
// satisfies kb.Metrics.
type KBMetrics struct {
	mutations metric.Int64Counter
	lookups   metric.Int64Counter
	hits      metric.Int64Histogram
	gauges    metric.Registration

	active   atomic.Int64
	disabled atomic.Int64
}

// NewKBMetrics creates the instruments on the global meter provider.
func NewKBMetrics() (*KBMetrics, error) {
	return NewKBMetricsWithMeter(otel.Meter("actionkb/kb"))
}

// NewKBMetricsWithMeter creates the instruments on meter.
func NewKBMetricsWithMeter(meter metric.Meter) (*KBMetrics, error) {
	m := &KBMetrics{}
	var err error
	m.mutations, err = meter.Int64Counter(
		"actionkb.kb.mutations",
		metric.WithDescription("Mutation requests by operation and outcome"),
	)
	if err != nil {
		return nil, err
	}
	m.lookups, err = meter.Int64Counter(
		"actionkb.kb.lookups",
		metric.WithDescription("Lookups by kind and whether anything was found"),
	)
	if err != nil {
		return nil, err
	}
	m.hits, err = meter.Int64Histogram(
		"actionkb.kb.lookup.results",
		metric.WithDescription("Number of entries returned per lookup"),
	)
	if err != nil {
		return nil, err
	}
	activeGauge, err := meter.Int64ObservableGauge(
		"actionkb.kb.actions.active",
		metric.WithDescription("Active action entries"),
	)
	if err != nil {
		return nil, err
	}
	disabledGauge, err := meter.Int64ObservableGauge(
		"actionkb.kb.actions.disabled",
		metric.WithDescription("Disabled action entries"),
	)
	if err != nil {
		return nil, err
	}
	m.gauges, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(activeGauge, m.active.Load())
		o.ObserveInt64(disabledGauge, m.disabled.Load())
		return nil
	}, activeGauge, disabledGauge)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordMutation counts a mutation request.
func (m *KBMetrics) RecordMutation(op string, applied bool) {
	if m == nil {
		return
	}
	m.mutations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrKBOperation, op),
		attribute.String(AttrKBApplied, strconv.FormatBool(applied)),
	))
}

// RecordLookup counts a lookup and the size of its result.
func (m *KBMetrics) RecordLookup(kind string, hits int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKBLookupKind, kind),
		attribute.Bool(AttrKBLookupHit, hits > 0),
	))
	m.hits.Record(ctx, int64(hits), metric.WithAttributes(attribute.String(AttrKBLookupKind, kind)))
}

// RecordSize stores the entry counts reported by the gauges.
func (m *KBMetrics) RecordSize(active, disabled int) {
	if m == nil {
		return
	}
	m.active.Store(int64(active))
	m.disabled.Store(int64(disabled))
}

// Close unregisters the gauge callback.
func (m *KBMetrics) Close() error {
	if m == nil || m.gauges == nil {
		return nil
	}
	return m.gauges.Unregister()
}

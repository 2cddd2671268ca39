// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires OpenTelemetry tracing, metrics and trace-aware
// slog logging for the action knowledge base.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for knowledge base spans and metrics.
const (
	AttrKBOperation  = "actionkb.kb.operation"
	AttrKBApplied    = "actionkb.kb.applied"
	AttrKBLookupKind = "actionkb.kb.lookup.kind"
	AttrKBLookupHit  = "actionkb.kb.lookup.hit"
	AttrKBResults    = "actionkb.kb.results"

	AttrActionType      = "actionkb.action.type"
	AttrActionPrimitive = "actionkb.action.primitive"
	AttrActionSignature = "actionkb.action.signature"

	AttrGoal      = "actionkb.goal"
	AttrActor     = "actionkb.actor"
	AttrSignature = "actionkb.signature"

	AttrToolName    = "actionkb.tool.name"
	AttrToolSuccess = "actionkb.tool.success"
	AttrToolError   = "actionkb.tool.error_code"
)

// maxAttrLen bounds predicate text recorded on spans.
const maxAttrLen = 256

// ActionAttributes describes one action entry.
func ActionAttributes(typ, signature string, primitive bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrActionType, typ),
		attribute.Bool(AttrActionPrimitive, primitive),
	}
	if signature != "" {
		attrs = append(attrs, attribute.String(AttrActionSignature, truncate(signature)))
	}
	return attrs
}

// QueryAttributes describes an effect or signature query. Empty values are
// left out.
func QueryAttributes(kind, goal, actor string, results int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrKBLookupKind, kind),
		attribute.Int(AttrKBResults, results),
	}
	if goal != "" {
		key := AttrGoal
		if kind == "signature" {
			key = AttrSignature
		}
		attrs = append(attrs, attribute.String(key, truncate(goal)))
	}
	if actor != "" {
		attrs = append(attrs, attribute.String(AttrActor, actor))
	}
	return attrs
}

// ToolAttributes describes a remote tool call outcome.
func ToolAttributes(name string, success bool, errorCode string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.Bool(AttrToolSuccess, success),
	}
	if errorCode != "" {
		attrs = append(attrs, attribute.String(AttrToolError, errorCode))
	}
	return attrs
}

func truncate(value string) string {
	if len(value) > maxAttrLen {
		return value[:maxAttrLen] + "..."
	}
	return value
}

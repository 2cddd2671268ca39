// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package governance decides which knowledge base tools a server exposes
// to callers. Rules are evaluated in order and the first match wins.
package governance

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/jllopis/actionkb/pkg/config"
)

// ToolKind separates read-only tools from tools that change the knowledge base.
type ToolKind string

const (
	KindQuery    ToolKind = "query"
	KindMutation ToolKind = "mutation"
)

// ToolCall is the target of a policy evaluation.
type ToolCall struct {
	Kind ToolKind
	Name string
}

// Decision captures the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	RuleID  string
}

// PolicyEngine evaluates tool calls.
type PolicyEngine interface {
	Evaluate(ctx context.Context, call ToolCall) Decision
}

// Rule defines a single policy rule.
type Rule struct {
	ID     string
	Effect string   // allow or deny
	Kind   ToolKind // optional
	Name   string   // glob pattern, optional
	Reason string
}

// RuleSet evaluates rules in order.
type RuleSet struct {
	Rules           []Rule
	DefaultDecision Decision
}

// NewRuleSet creates a rule set with a default allow decision.
func NewRuleSet(rules []Rule) *RuleSet {
	return &RuleSet{
		Rules:           append([]Rule(nil), rules...),
		DefaultDecision: Decision{Allowed: true},
	}
}

// Evaluate returns the decision of the first rule matching call.
func (r *RuleSet) Evaluate(_ context.Context, call ToolCall) Decision {
	for _, rule := range r.Rules {
		if rule.Kind != "" && rule.Kind != call.Kind {
			continue
		}
		if !matchPattern(rule.Name, call.Name) {
			continue
		}
		return Decision{
			Allowed: !strings.EqualFold(rule.Effect, "deny"),
			Reason:  rule.Reason,
			RuleID:  rule.ID,
		}
	}
	return r.DefaultDecision
}

func matchPattern(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, value)
	if err == nil && ok {
		return true
	}
	return pattern == value
}

// ReadOnlyRule denies every mutation.
func ReadOnlyRule() Rule {
	return Rule{ID: "read-only", Effect: "deny", Kind: KindMutation, Reason: "knowledge base is read-only"}
}

// RuleSetFromConfig builds a rule set from the MCP policy settings. A
// read-only server denies mutations before any configured rule applies.
func RuleSetFromConfig(cfg config.MCPConfig) *RuleSet {
	rules := make([]Rule, 0, len(cfg.Policies)+1)
	if cfg.ReadOnly {
		rules = append(rules, ReadOnlyRule())
	}
	for i, rule := range cfg.Policies {
		id := strings.TrimSpace(rule.ID)
		if id == "" {
			id = "rule-" + strconv.Itoa(i)
		}
		rules = append(rules, Rule{
			ID:     id,
			Effect: rule.Effect,
			Kind:   ToolKind(strings.ToLower(rule.Kind)),
			Name:   rule.Tool,
			Reason: rule.Reason,
		})
	}
	return NewRuleSet(rules)
}

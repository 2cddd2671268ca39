// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/actionkb/pkg/action"
	kberrors "github.com/jllopis/actionkb/pkg/errors"
	"github.com/jllopis/actionkb/pkg/fol"
	"github.com/jllopis/actionkb/pkg/governance"
)

// Tool names.
const (
	ToolGetAction           = "kb_get_action"
	ToolActionsByEffect     = "kb_actions_by_effect"
	ToolActionsBySignature  = "kb_actions_by_signature"
	ToolActionExists        = "kb_action_exists"
	ToolListActions         = "kb_list_actions"
	ToolSignaturesForName   = "kb_signatures_for_name"
	ToolDisabledAction      = "kb_disabled_action"
	ToolInsertAction        = "kb_insert_action"
	ToolRemoveWithSignature = "kb_remove_with_signature"
	ToolDisableAction       = "kb_disable_action"
	ToolEnableAction        = "kb_enable_action"
	ToolVerify              = "kb_verify"
)

func toolKind(name string) governance.ToolKind {
	switch name {
	case ToolInsertAction, ToolRemoveWithSignature, ToolDisableAction, ToolEnableAction:
		return governance.KindMutation
	default:
		return governance.KindQuery
	}
}

// Kinds accepted by kb_list_actions.
const (
	ListAll        = "all"
	ListPrimitives = "primitive"
	ListScripts    = "script"
	ListDisabled   = "disabled"
)

// ActionsResult is the payload of tools returning several actions.
type ActionsResult struct {
	Actions []action.Descriptor `json:"actions"`
}

// ExistsResult is the payload of kb_action_exists.
type ExistsResult struct {
	Exists bool `json:"exists"`
}

// SignaturesResult is the payload of kb_signatures_for_name.
type SignaturesResult struct {
	Signatures []string `json:"signatures"`
}

// CountResult is the payload of kb_remove_with_signature.
type CountResult struct {
	Count int `json:"count"`
}

// AppliedResult is the payload of tools that mutate a single action.
type AppliedResult struct {
	Applied bool `json:"applied"`
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(ToolGetAction,
		mcp.WithDescription("Return the most recently inserted action of a type. Narrow by role types or by actor."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Action type name")),
		mcp.WithString("role_types", mcp.Description("Comma separated role types; signature roles, or input roles when actor is set")),
		mcp.WithString("actor", mcp.Description("Actor symbol, optionally typed as name:type")),
	), s.getAction)

	s.addTool(mcp.NewTool(ToolActionsByEffect,
		mcp.WithDescription("List actions with a postcondition the goal is an instance of, newest first."),
		mcp.WithString("goal", mcp.Required(), mcp.Description("Goal predicate, e.g. holding(robot1,cup1)")),
		mcp.WithString("actor", mcp.Description("Only keep actions this actor may perform")),
	), s.actionsByEffect)

	s.addTool(mcp.NewTool(ToolActionsBySignature,
		mcp.WithDescription("List actions with a signature the given predicate is an instance of."),
		mcp.WithString("signature", mcp.Required(), mcp.Description("Signature predicate, e.g. pickUp(robot1,cup1)")),
	), s.actionsBySignature)

	s.addTool(mcp.NewTool(ToolActionExists,
		mcp.WithDescription("Report whether some action can achieve the goal. goal(actor,effect) scopes the effect to an actor."),
		mcp.WithString("goal", mcp.Required(), mcp.Description("Goal predicate")),
	), s.actionExists)

	s.addTool(mcp.NewTool(ToolListActions,
		mcp.WithDescription("List actions by kind."),
		mcp.WithString("kind", mcp.Description("all, primitive, script or disabled"), mcp.Enum(ListAll, ListPrimitives, ListScripts, ListDisabled)),
	), s.listActions)

	s.addTool(mcp.NewTool(ToolSignaturesForName,
		mcp.WithDescription("List the signature of every active action of a type, oldest first."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Action type name")),
	), s.signaturesForName)

	s.addTool(mcp.NewTool(ToolDisabledAction,
		mcp.WithDescription("Return the most recently disabled action of a type."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Action type name")),
	), s.disabledAction)

	s.addTool(mcp.NewTool(ToolInsertAction,
		mcp.WithDescription("Insert an action given as a JSON descriptor."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("JSON action descriptor")),
	), s.insertAction)

	s.addTool(mcp.NewTool(ToolRemoveWithSignature,
		mcp.WithDescription("Remove every action with a signature the predicate is an instance of."),
		mcp.WithString("signature", mcp.Required(), mcp.Description("Signature predicate")),
	), s.removeWithSignature)

	s.addTool(mcp.NewTool(ToolDisableAction,
		mcp.WithDescription("Disable the most recently inserted action of a type."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Action type name")),
	), s.disableAction)

	s.addTool(mcp.NewTool(ToolEnableAction,
		mcp.WithDescription("Re-insert the most recently disabled action of a type."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Action type name")),
	), s.enableAction)

	s.addTool(mcp.NewTool(ToolVerify,
		mcp.WithDescription("Check the knowledge base index invariants."),
	), s.verify)
}

func (s *Server) getAction(_ context.Context, args map[string]any) (any, error) {
	typ, err := requiredString(args, "type")
	if err != nil {
		return nil, err
	}
	roleTypes := splitList(optionalString(args, "role_types"))
	var (
		e  *action.Entry
		ok bool
	)
	switch actor := optionalString(args, "actor"); {
	case actor != "":
		e, ok = s.kb.ActionForActor(typ, fol.NewSymbol(actor), roleTypes)
	case roleTypes != nil:
		e, ok = s.kb.ActionWithRoles(typ, roleTypes)
	default:
		e, ok = s.kb.Action(typ)
	}
	if !ok {
		return nil, notFound("action", typ)
	}
	return e.Describe(), nil
}

func (s *Server) actionsByEffect(_ context.Context, args map[string]any) (any, error) {
	goal, err := requiredPredicate(args, "goal")
	if err != nil {
		return nil, err
	}
	var actor *fol.Symbol
	if name := optionalString(args, "actor"); name != "" {
		sym := fol.NewSymbol(name)
		actor = &sym
	}
	return ActionsResult{Actions: action.Describe(s.kb.ActionsByEffect(actor, goal))}, nil
}

func (s *Server) actionsBySignature(_ context.Context, args map[string]any) (any, error) {
	sig, err := requiredPredicate(args, "signature")
	if err != nil {
		return nil, err
	}
	return ActionsResult{Actions: action.Describe(s.kb.ActionsBySignature(sig))}, nil
}

func (s *Server) actionExists(_ context.Context, args map[string]any) (any, error) {
	goal, err := requiredPredicate(args, "goal")
	if err != nil {
		return nil, err
	}
	return ExistsResult{Exists: s.kb.ActionExists(goal)}, nil
}

func (s *Server) listActions(_ context.Context, args map[string]any) (any, error) {
	var entries []*action.Entry
	switch kind := optionalString(args, "kind"); kind {
	case "", ListAll:
		entries = s.kb.AllActions()
	case ListPrimitives:
		entries = s.kb.Primitives()
	case ListScripts:
		entries = s.kb.Scripts()
	case ListDisabled:
		entries = s.kb.DisabledActions()
	default:
		return nil, kberrors.New(kberrors.CodeInvalidInput, fmt.Sprintf("unknown kind %q", kind), nil).
			WithContext("kind", kind)
	}
	return ActionsResult{Actions: action.Describe(entries)}, nil
}

func (s *Server) signaturesForName(_ context.Context, args map[string]any) (any, error) {
	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}
	sigs := s.kb.ActionSignaturesForName(name)
	out := SignaturesResult{Signatures: make([]string, 0, len(sigs))}
	for _, sig := range sigs {
		out.Signatures = append(out.Signatures, sig.String())
	}
	return out, nil
}

func (s *Server) disabledAction(_ context.Context, args map[string]any) (any, error) {
	typ, err := requiredString(args, "type")
	if err != nil {
		return nil, err
	}
	e, ok := s.kb.DisabledAction(typ)
	if !ok {
		return nil, notFound("disabled action", typ)
	}
	return e.Describe(), nil
}

func (s *Server) insertAction(_ context.Context, args map[string]any) (any, error) {
	raw, err := requiredString(args, "definition")
	if err != nil {
		return nil, err
	}
	var d action.Descriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, kberrors.New(kberrors.CodeInvalidInput, "decode definition", err)
	}
	e, err := d.Build()
	if err != nil {
		return nil, err
	}
	return AppliedResult{Applied: s.kb.Insert(e)}, nil
}

func (s *Server) removeWithSignature(_ context.Context, args map[string]any) (any, error) {
	sig, err := requiredPredicate(args, "signature")
	if err != nil {
		return nil, err
	}
	return CountResult{Count: s.kb.RemoveActionsWithSignature(sig)}, nil
}

func (s *Server) disableAction(_ context.Context, args map[string]any) (any, error) {
	typ, err := requiredString(args, "type")
	if err != nil {
		return nil, err
	}
	e, ok := s.kb.Action(typ)
	if !ok {
		return nil, notFound("action", typ)
	}
	return AppliedResult{Applied: s.kb.Disable(e)}, nil
}

func (s *Server) enableAction(_ context.Context, args map[string]any) (any, error) {
	typ, err := requiredString(args, "type")
	if err != nil {
		return nil, err
	}
	e, ok := s.kb.DisabledAction(typ)
	if !ok {
		return nil, notFound("disabled action", typ)
	}
	return AppliedResult{Applied: s.kb.Insert(e)}, nil
}

func (s *Server) verify(ctx context.Context, _ map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, kberrors.New(kberrors.CodeTimeout, "verify cancelled", err)
	}
	if err := s.kb.Verify(); err != nil {
		return nil, err
	}
	return AppliedResult{Applied: true}, nil
}

func notFound(what, typ string) error {
	return kberrors.New(kberrors.CodeNotFound, fmt.Sprintf("no %s of type %q", what, typ), nil).
		WithContext("type", typ)
}

func requiredString(args map[string]any, key string) (string, error) {
	v := optionalString(args, key)
	if v == "" {
		return "", kberrors.New(kberrors.CodeInvalidInput, key+" is required", nil).WithContext("argument", key)
	}
	return v, nil
}

func optionalString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func requiredPredicate(args map[string]any, key string) (fol.Predicate, error) {
	text, err := requiredString(args, key)
	if err != nil {
		return fol.Predicate{}, err
	}
	p, err := fol.Parse(text)
	if err != nil {
		return fol.Predicate{}, kberrors.New(kberrors.CodeInvalidInput, "parse "+key, err).WithContext("argument", key)
	}
	return p, nil
}

// splitList returns nil for an empty string so callers can tell "no
// filter" from "no roles".
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/actionkb/pkg/action"
	kberrors "github.com/jllopis/actionkb/pkg/errors"
)

// ActionQuery selects the action returned by GetAction. RoleTypes are
// signature role types, or input role types when Actor is set.
type ActionQuery struct {
	Type      string
	RoleTypes []string
	Actor     string
}

// GetAction returns the most recent action matching q.
func (c *Client) GetAction(ctx context.Context, q ActionQuery) (action.Descriptor, error) {
	args := map[string]any{"type": q.Type}
	if len(q.RoleTypes) > 0 {
		args["role_types"] = strings.Join(q.RoleTypes, ",")
	}
	if q.Actor != "" {
		args["actor"] = q.Actor
	}
	var out action.Descriptor
	err := c.call(ctx, ToolGetAction, args, &out)
	return out, err
}

// ActionsByEffect lists actions whose postconditions goal instantiates.
// An empty actor disables the actor filter.
func (c *Client) ActionsByEffect(ctx context.Context, goal, actor string) ([]action.Descriptor, error) {
	args := map[string]any{"goal": goal}
	if actor != "" {
		args["actor"] = actor
	}
	var out ActionsResult
	err := c.call(ctx, ToolActionsByEffect, args, &out)
	return out.Actions, err
}

// ActionsBySignature lists actions whose signatures sig instantiates.
func (c *Client) ActionsBySignature(ctx context.Context, sig string) ([]action.Descriptor, error) {
	var out ActionsResult
	err := c.call(ctx, ToolActionsBySignature, map[string]any{"signature": sig}, &out)
	return out.Actions, err
}

// ActionExists reports whether some action can achieve goal.
func (c *Client) ActionExists(ctx context.Context, goal string) (bool, error) {
	var out ExistsResult
	err := c.call(ctx, ToolActionExists, map[string]any{"goal": goal}, &out)
	return out.Exists, err
}

// ListActions lists actions of the given kind: all, primitive, script or disabled.
func (c *Client) ListActions(ctx context.Context, kind string) ([]action.Descriptor, error) {
	var out ActionsResult
	err := c.call(ctx, ToolListActions, map[string]any{"kind": kind}, &out)
	return out.Actions, err
}

// SignaturesForName lists the signatures of the active actions named name.
func (c *Client) SignaturesForName(ctx context.Context, name string) ([]string, error) {
	var out SignaturesResult
	err := c.call(ctx, ToolSignaturesForName, map[string]any{"name": name}, &out)
	return out.Signatures, err
}

// DisabledAction returns the most recently disabled action of typ.
func (c *Client) DisabledAction(ctx context.Context, typ string) (action.Descriptor, error) {
	var out action.Descriptor
	err := c.call(ctx, ToolDisabledAction, map[string]any{"type": typ}, &out)
	return out, err
}

// InsertAction inserts d and reports whether it was added.
func (c *Client) InsertAction(ctx context.Context, d action.Descriptor) (bool, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return false, kberrors.New(kberrors.CodeInvalidInput, "encode definition", err)
	}
	var out AppliedResult
	err = c.call(ctx, ToolInsertAction, map[string]any{"definition": string(data)}, &out)
	return out.Applied, err
}

// RemoveWithSignature removes the actions whose signatures sig instantiates.
func (c *Client) RemoveWithSignature(ctx context.Context, sig string) (int, error) {
	var out CountResult
	err := c.call(ctx, ToolRemoveWithSignature, map[string]any{"signature": sig}, &out)
	return out.Count, err
}

// DisableAction disables the most recent action of typ.
func (c *Client) DisableAction(ctx context.Context, typ string) (bool, error) {
	var out AppliedResult
	err := c.call(ctx, ToolDisableAction, map[string]any{"type": typ}, &out)
	return out.Applied, err
}

// EnableAction re-inserts the most recently disabled action of typ.
func (c *Client) EnableAction(ctx context.Context, typ string) (bool, error) {
	var out AppliedResult
	err := c.call(ctx, ToolEnableAction, map[string]any{"type": typ}, &out)
	return out.Applied, err
}

// Verify checks the remote index invariants.
func (c *Client) Verify(ctx context.Context) error {
	return c.call(ctx, ToolVerify, nil, &AppliedResult{})
}

func (c *Client) call(ctx context.Context, tool string, args map[string]any, out any) error {
	res, err := c.CallTool(ctx, tool, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return kberrors.New(kberrors.CodeTimeout, tool, err).WithRecoverable(true)
		}
		return unavailable(tool, err)
	}
	text := resultText(res)
	if res.IsError {
		return decodeToolError(tool, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return kberrors.New(kberrors.CodeInternal, "decode "+tool+" result", err)
	}
	return nil
}

func resultText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			b.WriteString(tc.Text)
		case *mcp.TextContent:
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func decodeToolError(tool, text string) error {
	var te toolError
	if err := json.Unmarshal([]byte(text), &te); err != nil || te.Code == "" {
		return kberrors.New(kberrors.CodeInternal, text, nil).WithContext("tool", tool)
	}
	ke := kberrors.New(kberrors.ErrorCode(te.Code), te.Message, nil).WithContext("tool", tool)
	for k, v := range te.Context {
		ke.WithContext(k, v)
	}
	return ke
}

func unavailable(msg string, err error) *kberrors.KBError {
	return kberrors.New(kberrors.CodeUnavailable, msg, err).WithRecoverable(true)
}

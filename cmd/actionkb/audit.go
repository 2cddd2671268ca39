// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jllopis/actionkb/pkg/kb"
)

type auditListOptions struct {
	Op      string
	Type    string
	Applied bool
	Limit   int
	DSN     string
}

func newAuditCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the knowledge base audit log",
	}

	opts := auditListOptions{}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded mutations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.DSN == "" {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				opts.DSN = cfg.Audit.DSN
			}
			if opts.DSN == "" {
				return NewInvalidArgumentError("dsn", "audit.dsn is empty; the in-memory audit log is only visible to the serving process")
			}
			switch kb.Op(opts.Op) {
			case "", kb.OpInsert, kb.OpRemove, kb.OpDisable:
			default:
				return NewInvalidArgumentError("op", fmt.Sprintf("unknown operation %q", opts.Op))
			}
			return runAuditList(cmd.Context(), cmd.OutOrStdout(), opts, root.JSON)
		},
	}
	listCmd.Flags().StringVar(&opts.Op, "op", "", "Only this operation: insert, remove or disable")
	listCmd.Flags().StringVar(&opts.Type, "type", "", "Only this action type")
	listCmd.Flags().BoolVar(&opts.Applied, "applied", false, "Only mutations that changed the knowledge base")
	listCmd.Flags().IntVar(&opts.Limit, "limit", 100, "Maximum number of events")
	listCmd.Flags().StringVar(&opts.DSN, "dsn", "", "SQLite DSN (default audit.dsn)")

	cmd.AddCommand(listCmd)
	return cmd
}

func runAuditList(ctx context.Context, w io.Writer, opts auditListOptions, asJSON bool) error {
	store, err := kb.OpenSQLiteAuditStore(opts.DSN)
	if err != nil {
		return NewConfigError(err, opts.DSN)
	}
	defer store.Close()

	events, err := store.List(ctx, kb.AuditFilter{
		Op:          kb.Op(opts.Op),
		ActionType:  opts.Type,
		AppliedOnly: opts.Applied,
		Limit:       opts.Limit,
	})
	if err != nil {
		return err
	}
	if asJSON {
		if events == nil {
			events = []kb.AuditEvent{}
		}
		return printJSON(w, events)
	}
	writer := newTabWriter(w)
	writeRow(writer, "TIME", "OP", "TYPE", "APPLIED", "SIGNATURE", "REASON")
	for _, ev := range events {
		writeRow(writer, formatTime(ev.RecordedAt), string(ev.Op), ev.ActionType,
			strconv.FormatBool(ev.Applied), ev.Signature, ev.Reason)
	}
	return writer.Flush()
}

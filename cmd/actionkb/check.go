// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/errors"
	"github.com/jllopis/actionkb/pkg/kb"
	"github.com/jllopis/actionkb/pkg/telemetry"
)

type checkResult struct {
	Actions    []action.Descriptor `json:"actions"`
	Active     int                 `json:"active"`
	Primitives int                 `json:"primitives"`
	Scripts    int                 `json:"scripts"`
	Duplicates int                 `json:"duplicates"`
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path...]",
		Short: "Validate action definitions and the index built from them",
		Long: `Loads the given files or directories (kb.definitions when none are given),
inserts them into a fresh knowledge base and verifies its index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			paths := args
			if len(paths) == 0 {
				paths = cfg.KB.Definitions
			}
			if len(paths) == 0 {
				return NewInvalidArgumentError("path", "no definitions given and kb.definitions is empty")
			}
			logger := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return runCheck(cmd.OutOrStdout(), logger, newMatcher(cfg.KB), paths, opts.JSON)
		},
	}
}

func runCheck(w io.Writer, logger *slog.Logger, matcher kb.Matcher, paths []string, asJSON bool) error {
	entries, err := action.LoadPaths(paths)
	if err != nil {
		return NewDefinitionError(err)
	}
	k := kb.New(kb.WithMatcher(matcher), kb.WithLogger(logger))
	added := k.InsertAll(entries)
	if err := k.Verify(); err != nil {
		return NewCLIError(errors.AsKBError(err), "the definitions load but break an index invariant; please report it")
	}

	result := checkResult{
		Actions:    action.Describe(k.AllActions()),
		Active:     k.Len(),
		Primitives: len(k.Primitives()),
		Scripts:    len(k.Scripts()),
		Duplicates: len(entries) - added,
	}
	if asJSON {
		return printJSON(w, result)
	}
	if err := printActions(w, result.Actions, false); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n%d actions (%d primitive, %d scripts), %d duplicates ignored\n",
		result.Active, result.Primitives, result.Scripts, result.Duplicates)
	return err
}

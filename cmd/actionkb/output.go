// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jllopis/actionkb/pkg/action"
)

func printJSON(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}

// printActions writes descriptors as a table or as JSON.
func printActions(w io.Writer, actions []action.Descriptor, asJSON bool) error {
	if asJSON {
		if actions == nil {
			actions = []action.Descriptor{}
		}
		return printJSON(w, actions)
	}
	writer := newTabWriter(w)
	writeRow(writer, "TYPE", "KIND", "SIGNATURE", "POSTCONDITIONS")
	for _, d := range actions {
		kind := "script"
		if d.Primitive {
			kind = "primitive"
		}
		writeRow(writer, d.Type, kind, signatureOf(d), strings.Join(postconditionsOf(d), " "))
	}
	return writer.Flush()
}

// signatureOf prefers declared variants and falls back to the canonical
// signature of the built entry.
func signatureOf(d action.Descriptor) string {
	if len(d.Signatures) > 0 {
		return strings.Join(d.Signatures, " | ")
	}
	e, err := d.Build()
	if err != nil {
		return ""
	}
	return e.Signature().String()
}

func postconditionsOf(d action.Descriptor) []string {
	var out []string
	for _, eff := range d.Effects {
		switch eff.Kind {
		case "", action.EffectSuccess, action.EffectAlways:
			out = append(out, eff.Predicate)
		}
	}
	return out
}

// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/mcp"
)

type queryOptions struct {
	*rootOptions
	URL string
}

// withClient connects to the remote knowledge base and runs fn under the
// request timeout.
func (o *queryOptions) withClient(cmd *cobra.Command, operation string, fn func(ctx context.Context, c *mcp.Client) error) error {
	url := o.URL
	timeout := o.Timeout
	if url == "" {
		cfg, err := o.loadConfig()
		if err != nil {
			return err
		}
		url = cfg.MCP.URL
		if !cmd.Flags().Changed("timeout") && cfg.MCP.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.MCP.TimeoutSeconds) * time.Second
		}
	}
	client, err := mcp.NewClientWithStreamableHTTP(url, mcp.WithTimeout(timeout))
	if err != nil {
		return remoteError(err, url, operation)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := fn(ctx, client); err != nil {
		return remoteError(err, url, operation)
	}
	return nil
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a knowledge base served with mcp.transport=http",
	}
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "MCP endpoint (default mcp.url)")

	var roleTypes []string
	var actor string
	actionCmd := &cobra.Command{
		Use:   "action <type>",
		Short: "Show the most recent action of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "action", func(ctx context.Context, c *mcp.Client) error {
				d, err := c.GetAction(ctx, mcp.ActionQuery{Type: args[0], RoleTypes: roleTypes, Actor: actor})
				if err != nil {
					return err
				}
				return printActions(cmd.OutOrStdout(), []action.Descriptor{d}, opts.JSON)
			})
		},
	}
	actionCmd.Flags().StringSliceVar(&roleTypes, "role-types", nil, "Role types to match, in order")
	actionCmd.Flags().StringVar(&actor, "actor", "", "Actor that must be able to perform the action")

	var effectActor string
	effectCmd := &cobra.Command{
		Use:   "effect <goal>",
		Short: "List actions that can achieve a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "effect", func(ctx context.Context, c *mcp.Client) error {
				actions, err := c.ActionsByEffect(ctx, args[0], effectActor)
				if err != nil {
					return err
				}
				return printActions(cmd.OutOrStdout(), actions, opts.JSON)
			})
		},
	}
	effectCmd.Flags().StringVar(&effectActor, "actor", "", "Only actions this actor may perform")

	signatureCmd := &cobra.Command{
		Use:   "signature <predicate>",
		Short: "List actions callable with a signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "signature", func(ctx context.Context, c *mcp.Client) error {
				actions, err := c.ActionsBySignature(ctx, args[0])
				if err != nil {
					return err
				}
				return printActions(cmd.OutOrStdout(), actions, opts.JSON)
			})
		},
	}

	existsCmd := &cobra.Command{
		Use:   "exists <goal>",
		Short: "Report whether some action can achieve a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "exists", func(ctx context.Context, c *mcp.Client) error {
				ok, err := c.ActionExists(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.JSON {
					return printJSON(cmd.OutOrStdout(), mcp.ExistsResult{Exists: ok})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
				return err
			})
		},
	}

	var kind string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List actions by kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, "list", func(ctx context.Context, c *mcp.Client) error {
				actions, err := c.ListActions(ctx, kind)
				if err != nil {
					return err
				}
				return printActions(cmd.OutOrStdout(), actions, opts.JSON)
			})
		},
	}
	listCmd.Flags().StringVar(&kind, "kind", mcp.ListAll, "all, primitive, script or disabled")

	signaturesCmd := &cobra.Command{
		Use:   "signatures <name>",
		Short: "List the signatures of the actions with a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "signatures", func(ctx context.Context, c *mcp.Client) error {
				sigs, err := c.SignaturesForName(ctx, args[0])
				if err != nil {
					return err
				}
				return printLines(cmd.OutOrStdout(), sigs, opts.JSON)
			})
		},
	}

	disabledCmd := &cobra.Command{
		Use:   "disabled <type>",
		Short: "Show the most recently disabled action of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "disabled", func(ctx context.Context, c *mcp.Client) error {
				d, err := c.DisabledAction(ctx, args[0])
				if err != nil {
					return err
				}
				return printActions(cmd.OutOrStdout(), []action.Descriptor{d}, opts.JSON)
			})
		},
	}

	disableCmd := &cobra.Command{
		Use:   "disable <type>",
		Short: "Disable the most recent action of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "disable", func(ctx context.Context, c *mcp.Client) error {
				ok, err := c.DisableAction(ctx, args[0])
				if err != nil {
					return err
				}
				return printApplied(cmd.OutOrStdout(), "disabled", args[0], ok, opts.JSON)
			})
		},
	}

	enableCmd := &cobra.Command{
		Use:   "enable <type>",
		Short: "Re-insert the most recently disabled action of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "enable", func(ctx context.Context, c *mcp.Client) error {
				ok, err := c.EnableAction(ctx, args[0])
				if err != nil {
					return err
				}
				return printApplied(cmd.OutOrStdout(), "enabled", args[0], ok, opts.JSON)
			})
		},
	}

	insertCmd := &cobra.Command{
		Use:   "insert <file>",
		Short: "Insert the actions of a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := action.LoadFile(args[0])
			if err != nil {
				return NewDefinitionError(err)
			}
			return opts.withClient(cmd, "insert", func(ctx context.Context, c *mcp.Client) error {
				for _, e := range entries {
					ok, err := c.InsertAction(ctx, e.Describe())
					if err != nil {
						return err
					}
					if err := printApplied(cmd.OutOrStdout(), "inserted", e.Type(), ok, opts.JSON); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <signature>",
		Short: "Remove every action callable with a signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, "remove", func(ctx context.Context, c *mcp.Client) error {
				n, err := c.RemoveWithSignature(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.JSON {
					return printJSON(cmd.OutOrStdout(), mcp.CountResult{Count: n})
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d actions\n", n)
				return err
			})
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the remote index invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, "verify", func(ctx context.Context, c *mcp.Client) error {
				if err := c.Verify(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			})
		},
	}

	cmd.AddCommand(actionCmd, effectCmd, signatureCmd, existsCmd, listCmd, signaturesCmd,
		disabledCmd, disableCmd, enableCmd, insertCmd, removeCmd, verifyCmd)
	return cmd
}

func printLines(w io.Writer, lines []string, asJSON bool) error {
	if asJSON {
		return printJSON(w, mcp.SignaturesResult{Signatures: lines})
	}
	if len(lines) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func printApplied(w io.Writer, verb, typ string, applied bool, asJSON bool) error {
	if asJSON {
		return printJSON(w, map[string]any{"type": typ, "applied": applied})
	}
	if !applied {
		_, err := fmt.Fprintf(w, "%s: unchanged\n", typ)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", typ, verb)
	return err
}

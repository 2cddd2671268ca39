// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Command actionkb serves, checks and queries an action knowledge base.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jllopis/actionkb/pkg/config"
)

var version = "dev"

// rootOptions are the flags shared by every command.
type rootOptions struct {
	ConfigPath string
	Profile    string
	Sets       []string
	Timeout    time.Duration
	JSON       bool
}

// configArgs renders the flags in the form config.LoadWithCLI understands.
func (o *rootOptions) configArgs() []string {
	var args []string
	if o.ConfigPath != "" {
		args = append(args, "--config", o.ConfigPath)
	}
	if o.Profile != "" {
		args = append(args, "--profile", o.Profile)
	}
	for _, s := range o.Sets {
		args = append(args, "--set", s)
	}
	return args
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithCLI(o.configArgs())
	if err != nil {
		return nil, NewConfigError(err, o.ConfigPath)
	}
	return cfg, nil
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "actionkb",
		Short:         "Action knowledge base for task planners",
		Long:          "actionkb indexes action definitions by type, effect and signature and serves them over MCP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to the configuration file")
	flags.StringVar(&opts.Profile, "profile", "", "Configuration profile overlay, e.g. dev")
	flags.StringArrayVar(&opts.Sets, "set", nil, "Override a config key, key=value (repeatable)")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Request timeout for remote commands")
	flags.BoolVar(&opts.JSON, "json", false, "JSON output")

	root.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newQueryCmd(opts),
		newAuditCmd(opts),
	)
	return root, opts
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, opts := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		ReportError(os.Stderr, err, opts.JSON)
		stop()
		os.Exit(1)
	}
}

// Package cmd holds the aisearch command tree.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	cfgPath  string
	logLevel string
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "aisearch",
		Short:         "Answer questions from live web sources",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "config file (default is ./config.{yaml,json})")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override general.log_level")

	root.AddCommand(askCMD(opts), serveCMD(opts))
	return root
}

// load reads the configuration and builds the process logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.General.LogLevel = o.logLevel
	}
	log, err := logger.New(cfg.General.LogLevel, cfg.General.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

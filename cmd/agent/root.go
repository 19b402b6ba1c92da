package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"screen-agent/internal/infrastructure/config"
	"screen-agent/internal/infrastructure/fixture"
)

type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	format  string

	cfg *config.Config
	out fixture.Format
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:           "agent",
		Short:         "Correlate task plans with detected UI elements and resolve actions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./agent.yaml)")
	flags.StringVarP(&opts.format, "format", "o", string(fixture.FormatTree), "output format: tree, json or yaml")
	flags.Float64("min-confidence", 0.3, "confidence floor for classified elements")
	flags.Float64("iou", 0.5, "IoU threshold for merging duplicate detections")
	flags.Bool("strict-screenshot", false, "only match steps against their expected screenshot")
	flags.Int("workers", 4, "parallel screenshot workers")
	flags.Bool("headless", false, "run the browser without a window")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "console", "console log format: console or json")
	flags.String("log-dir", "log", "directory for per-run log files; empty disables them")

	bind := map[string]string{
		"pipeline.min_confidence":    "min-confidence",
		"pipeline.iou_threshold":     "iou",
		"pipeline.strict_screenshot": "strict-screenshot",
		"pipeline.workers":           "workers",
		"browser.headless":           "headless",
		"log.level":                  "log-level",
		"log.format":                 "log-format",
		"log.dir":                    "log-dir",
	}
	for key, flag := range bind {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newCorrelateCmd(opts), newRunCmd(opts))
	return root
}

func (o *rootOptions) load() error {
	if err := config.Init(o.v, o.cfgFile); err != nil {
		return err
	}
	cfg, err := config.NewConfigFromViper(o.v)
	if err != nil {
		return err
	}
	out, err := fixture.ParseFormat(o.format)
	if err != nil {
		return fmt.Errorf("--format: %w", err)
	}
	o.cfg, o.out = cfg, out
	return nil
}

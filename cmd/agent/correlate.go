package main

import (
	"github.com/spf13/cobra"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/di"
	"screen-agent/internal/infrastructure/fixture"
)

type performFlags struct {
	perform       bool
	dryRun        bool
	continueOnGap bool
}

func (p *performFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.perform, "perform", false, "send the top action of every matched step to the browser")
	cmd.Flags().BoolVar(&p.dryRun, "dry-run", false, "log actions instead of performing them")
	cmd.Flags().BoolVar(&p.continueOnGap, "continue-on-gap", false, "keep performing past steps without an action")
}

func newCorrelateCmd(root *rootOptions) *cobra.Command {
	var (
		planPath, detectionsPath string
		pf                       performFlags
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate a plan file with recorded detections, without model calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			groups, err := fixture.LoadDetections(detectionsPath)
			if err != nil {
				return err
			}

			c, err := di.NewContainer(ctx, di.Options{
				Config:     root.cfg,
				TaskName:   "correlate",
				Detections: groups,
				Out:        cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			defer c.Close()

			plan, err := fixture.LoadPlan(planPath, c.Vocabulary)
			if err != nil {
				return err
			}

			screenshots := make([]string, len(groups))
			for i, g := range groups {
				screenshots[i] = g.Screenshot
			}
			out, err := c.Runner.Execute(ctx, input.RunRequest{Plan: plan, Screenshots: screenshots})
			if err != nil {
				c.Logger.Error("Correlation failed", "error", err)
				return err
			}

			if err := render(cmd, root.out, c, out); err != nil {
				return err
			}
			return perform(cmd, c, pf, out)
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "plan file (YAML or JSON)")
	cmd.Flags().StringVarP(&detectionsPath, "detections", "d", "", "detections file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("detections")
	pf.register(cmd)
	return cmd
}

func render(cmd *cobra.Command, format fixture.Format, c *di.Container, out *input.RunResult) error {
	if format == fixture.FormatTree {
		c.Presenter.ShowPlan(cmd.Context(), out.Plan)
		c.Presenter.ShowResult(cmd.Context(), out.Result)
		return nil
	}
	return fixture.WriteResult(cmd.OutOrStdout(), out.Result, format)
}

func perform(cmd *cobra.Command, c *di.Container, pf performFlags, out *input.RunResult) error {
	if !pf.perform && !pf.dryRun {
		return nil
	}
	p, err := c.Performer(cmd.Context(), pf.dryRun || !pf.perform, pf.continueOnGap)
	if err != nil {
		return err
	}
	report, err := p.Perform(cmd.Context(), out.Result)
	if err != nil {
		return err
	}
	c.Logger.Info("Perform finished", "performed", report.Performed, "stopped_at", report.StoppedAt)
	return nil
}

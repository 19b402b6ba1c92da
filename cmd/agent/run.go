package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/di"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/env"
	"screen-agent/internal/infrastructure/fixture"
)

const (
	detectorVision = "vision"
	detectorDOM    = "dom"
)

type runFlags struct {
	screenshots []string
	planPath    string
	url         string
	detector    string
	capture     bool
	timeout     time.Duration
	perform     performFlags
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Plan an instruction, detect elements on screenshots and resolve actions",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args, " "))
			if instruction == "" && f.planPath == "" {
				return fmt.Errorf("an instruction or --plan is required")
			}
			switch f.detector {
			case detectorVision:
			case detectorDOM:
				if len(f.screenshots) > 0 {
					return fmt.Errorf("--detector=dom only reads the live page; drop --screenshot")
				}
				f.capture = true
			default:
				return fmt.Errorf("--detector must be %q or %q", detectorVision, detectorDOM)
			}

			ctx := cmd.Context()
			if f.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, f.timeout)
				defer cancel()
			}

			var apiKey string
			if f.planPath == "" || f.detector == detectorVision {
				key, err := env.NewEnvService().Require(root.cfg.LLM.APIKeyEnv)
				if err != nil {
					return err
				}
				apiKey = key
			}

			c, err := di.NewContainer(ctx, di.Options{
				Config:       root.cfg,
				TaskName:     instruction,
				APIKey:       apiKey,
				DOMDetection: f.detector == detectorDOM,
				Out:          cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			defer c.Close()

			if f.url != "" || f.capture {
				shot, err := prepareBrowser(ctx, c, f.url, f.capture)
				if err != nil {
					return err
				}
				if shot != "" {
					f.screenshots = append(f.screenshots, shot)
				}
			}

			var plan *entity.Plan
			if f.planPath != "" {
				if plan, err = fixture.LoadPlan(f.planPath, c.Vocabulary); err != nil {
					return err
				}
			}

			c.Logger.Info("Task started", "instruction", instruction, "screenshots", len(f.screenshots), "detector", f.detector)
			out, err := c.Runner.Execute(ctx, input.RunRequest{
				Instruction: instruction,
				Screenshots: f.screenshots,
				Plan:        plan,
			})
			if err != nil {
				c.Logger.Error("Task failed", "error", err)
				return err
			}
			c.Logger.Info("Task completed", "run_id", out.Result.RunID, "state", out.Result.State, "matched", out.Result.Matched())

			if err := render(cmd, root.out, c, out); err != nil {
				return err
			}
			return perform(cmd, c, f.perform, out)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.screenshots, "screenshot", "s", nil, "screenshot to analyse, in capture order (repeatable)")
	flags.StringVarP(&f.planPath, "plan", "p", "", "use this plan file instead of the planner")
	flags.StringVar(&f.url, "url", "", "open this page in the browser first")
	flags.StringVar(&f.detector, "detector", detectorVision, "element source: vision (model) or dom (live page)")
	flags.BoolVar(&f.capture, "capture", false, "capture the browser viewport as an extra screenshot")
	flags.DurationVar(&f.timeout, "timeout", 30*time.Minute, "overall deadline")
	f.perform.register(cmd)
	return cmd
}

// prepareBrowser navigates and captures the viewport, returning the
// screenshot path when one was taken.
func prepareBrowser(ctx context.Context, c *di.Container, url string, capture bool) (string, error) {
	browser, err := c.Browser(ctx)
	if err != nil {
		return "", err
	}
	if url != "" {
		if err := browser.Navigate(ctx, url); err != nil {
			return "", err
		}
		c.Logger.Info("Page opened", "url", url)
	}
	if !capture {
		return "", nil
	}

	dir := c.Config.Log.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("capture_%s.png", time.Now().Format("2006-01-02_15-04-05")))
	if err := browser.Capture(ctx, path); err != nil {
		return "", err
	}
	c.Logger.Info("Captured screenshot", "path", path)
	return path, nil
}

package userinteraction

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var _ output.PresenterPort = (*ConsolePresenter)(nil)

// ConsolePresenter renders plans and results as a colored tree.
type ConsolePresenter struct {
	w io.Writer
}

func NewConsolePresenter(w io.Writer) *ConsolePresenter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsolePresenter{w: w}
}

var (
	header = color.New(color.FgCyan, color.Bold)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
	dim    = color.New(color.Faint)
	strong = color.New(color.Bold)
)

func (u *ConsolePresenter) ShowPlan(ctx context.Context, plan *entity.Plan) {
	header.Fprintf(u.w, "\n━━━ Plan: %s ━━━\n", plan.Goal)
	for i, s := range plan.Steps {
		branch := treeBranch(i, len(plan.Steps))
		fmt.Fprintf(u.w, "%s [%d] %s", branch, s.Index, s.Description)
		if s.TypeHint != nil {
			dim.Fprintf(u.w, " (%s)", *s.TypeHint)
		}
		if s.Input != "" {
			dim.Fprintf(u.w, " input=%q", truncate(s.Input, 40))
		}
		fmt.Fprintln(u.w)
	}
}

func (u *ConsolePresenter) ShowResult(ctx context.Context, res *entity.CorrelatedResult) {
	header.Fprintf(u.w, "\n━━━ Run %s ━━━\n", res.RunID)
	fmt.Fprintf(u.w, "State: ")
	stateColor(res.State).Fprintf(u.w, "%s", res.State)
	fmt.Fprintf(u.w, "  matched %d/%d\n", res.Matched(), len(res.Steps))

	for i, sr := range res.Steps {
		last := i == len(res.Steps)-1
		fmt.Fprintf(u.w, "%s [%d] %s ", treeBranch(i, len(res.Steps)), sr.Step.Index, sr.Step.Description)
		statusColor(sr.Step.Status).Fprintln(u.w, sr.Step.Status)

		indent := "│   "
		if last {
			indent = "    "
		}
		if sr.Element != nil {
			el := sr.Element
			fmt.Fprintf(u.w, "%s├── element %s ", indent, el.ID)
			strong.Fprintf(u.w, "%s", el.Type)
			dim.Fprintf(u.w, " %.2f %s %s\n", el.Confidence, el.Box, el.Screenshot)
		}
		fmt.Fprintf(u.w, "%s└── actions %s\n", indent, formatActions(sr.Actions))
	}

	u.showReport(res.Report)
}

func (u *ConsolePresenter) showReport(r entity.Report) {
	if r.FallbackApplied {
		warn.Fprintln(u.w, "Fallback confidence floor applied")
	}
	if len(r.Issues) == 0 {
		good.Fprintln(u.w, "✓ No issues")
	} else {
		warn.Fprintf(u.w, "Issues (%d):\n", len(r.Issues))
		for _, issue := range r.Issues {
			fmt.Fprintf(u.w, "  - %s\n", truncate(issue.String(), 160))
		}
	}
	if len(r.UnusedElements) > 0 {
		dim.Fprintf(u.w, "Unused elements: %d\n", len(r.UnusedElements))
	}
}

func (u *ConsolePresenter) ShowCommand(ctx context.Context, cmd output.Command, err error) {
	if err != nil {
		bad.Fprintf(u.w, "✗ step %d %s: ", cmd.Step, cmd.Action)
		dim.Fprintln(u.w, truncate(err.Error(), 300))
		return
	}
	good.Fprintf(u.w, "✓ step %d %s at (%.0f, %.0f)\n", cmd.Step, cmd.Action, cmd.X, cmd.Y)
}

func formatActions(actions []entity.ActionCandidate) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprintf("%s %.2f", a.Action, a.Score)
	}
	return strings.Join(parts, ", ")
}

func treeBranch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func stateColor(s entity.RunState) *color.Color {
	switch s {
	case entity.StateDone:
		return good
	case entity.StateFailed:
		return bad
	}
	return warn
}

func statusColor(s entity.StepStatus) *color.Color {
	switch s {
	case entity.StepMatched:
		return good
	case entity.StepFailed:
		return bad
	}
	return warn
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

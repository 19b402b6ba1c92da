package prompts

import (
	_ "embed"
)

//go:embed planner.txt
var PlannerPrompt string

//go:embed detector.txt
var DetectorPrompt string

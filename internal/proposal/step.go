package proposal

import "fmt"

// Step is one stage of the drafting wizard. The flow is strictly linear:
// upload -> analysis -> research -> strategy -> curriculum -> preview -> complete.
type Step string

const (
	StepUpload     Step = "upload"
	StepAnalysis   Step = "analysis"
	StepResearch   Step = "research"
	StepStrategy   Step = "strategy"
	StepCurriculum Step = "curriculum"
	StepPreview    Step = "preview"
	StepComplete   Step = "complete"
)

var stepOrder = []Step{
	StepUpload, StepAnalysis, StepResearch, StepStrategy,
	StepCurriculum, StepPreview, StepComplete,
}

func ParseStep(s string) (Step, error) {
	for _, step := range stepOrder {
		if string(step) == s {
			return step, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", s)
}

// Next returns the following step, or false from the terminal step.
func (s Step) Next() (Step, bool) {
	for i, step := range stepOrder {
		if step == s && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return s, false
}

// CanAdvanceTo reports whether target is the immediate successor of s.
// The wizard never skips or rewinds through this path; going back is a
// separate, always-allowed operation.
func (s Step) CanAdvanceTo(target Step) bool {
	next, ok := s.Next()
	return ok && next == target
}

// Terminal reports whether the draft is finished.
func (s Step) Terminal() bool {
	return s == StepComplete
}

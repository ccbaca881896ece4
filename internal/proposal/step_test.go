package proposal

import "testing"

func TestStepOrder(t *testing.T) {
	tests := []struct {
		from     Step
		wantNext Step
		wantOK   bool
	}{
		{StepUpload, StepAnalysis, true},
		{StepAnalysis, StepResearch, true},
		{StepResearch, StepStrategy, true},
		{StepStrategy, StepCurriculum, true},
		{StepCurriculum, StepPreview, true},
		{StepPreview, StepComplete, true},
		{StepComplete, StepComplete, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			next, ok := tt.from.Next()
			if ok != tt.wantOK || next != tt.wantNext {
				t.Errorf("Next() = (%q, %v), want (%q, %v)", next, ok, tt.wantNext, tt.wantOK)
			}
		})
	}
}

func TestCanAdvanceTo(t *testing.T) {
	if !StepUpload.CanAdvanceTo(StepAnalysis) {
		t.Error("upload should advance to analysis")
	}
	if StepUpload.CanAdvanceTo(StepResearch) {
		t.Error("steps must not be skipped")
	}
	if StepResearch.CanAdvanceTo(StepAnalysis) {
		t.Error("advance must not rewind")
	}
	if StepComplete.CanAdvanceTo(StepUpload) {
		t.Error("terminal step has no successor")
	}
}

func TestParseStep(t *testing.T) {
	if step, err := ParseStep("curriculum"); err != nil || step != StepCurriculum {
		t.Errorf("ParseStep(curriculum) = (%q, %v)", step, err)
	}
	if _, err := ParseStep("bogus"); err == nil {
		t.Error("unknown step should fail")
	}
}

func TestTerminal(t *testing.T) {
	if StepPreview.Terminal() {
		t.Error("preview is not terminal")
	}
	if !StepComplete.Terminal() {
		t.Error("complete is terminal")
	}
}

package proposal

import (
	"context"
	"fmt"
)

// The pipeline stages. Each is a narrow interface so the canned stub and the
// LLM-backed implementation are interchangeable per stage.
type (
	Analyzer interface {
		AnalyzeRFP(ctx context.Context, rfp RFPMetadata) (*AnalysisResult, error)
	}
	TrendResearcher interface {
		ResearchTrends(ctx context.Context, analysis AnalysisResult) ([]TrendInsight, error)
	}
	StrategyPlanner interface {
		GenerateStrategies(ctx context.Context, analysis AnalysisResult, trends []TrendInsight) ([]StrategyOption, error)
		EvaluateStrategies(ctx context.Context, options []StrategyOption, analysis AnalysisResult) ([]StrategyEvaluation, error)
	}
	CurriculumMatcher interface {
		MatchCurriculum(ctx context.Context, analysis AnalysisResult, strategy StrategyOption) ([]CourseMatch, error)
	}
	SlideBuilder interface {
		BuildSlides(ctx context.Context, analysis AnalysisResult, trends []TrendInsight, matches []CourseMatch) ([]Slide, error)
	}
	QualityScorer interface {
		ScoreProposal(ctx context.Context, slides []Slide, analysis AnalysisResult, matches []CourseMatch) (*QualityAssessment, error)
	}
)

// Pipeline threads a draft through the wizard's stages in order. The step
// machine gates every stage: running a stage out of order is an error, not a
// silent reset.
type Pipeline struct {
	Analyzer   Analyzer
	Researcher TrendResearcher
	Planner    StrategyPlanner
	Matcher    CurriculumMatcher
	Builder    SlideBuilder
	Scorer     QualityScorer
}

// NewStubPipeline wires every stage to the deterministic canned
// implementation.
func NewStubPipeline() *Pipeline {
	stub := &Stub{}
	return &Pipeline{
		Analyzer:   stub,
		Researcher: stub,
		Planner:    stub,
		Matcher:    stub,
		Builder:    stub,
		Scorer:     stub,
	}
}

func (p *Pipeline) requireStep(d *Draft, at Step) error {
	if d.Step != at {
		return fmt.Errorf("draft is at step %q, expected %q", d.Step, at)
	}
	return nil
}

func advance(d *Draft) {
	if next, ok := d.Step.Next(); ok {
		d.Step = next
	}
}

// RunAnalysis consumes the uploaded RFP and moves the draft to research.
func (p *Pipeline) RunAnalysis(ctx context.Context, d *Draft) error {
	if err := p.requireStep(d, StepUpload); err != nil {
		return err
	}
	if d.RFP == nil {
		return fmt.Errorf("no RFP attached to draft")
	}
	advance(d) // upload -> analysis

	analysis, err := p.Analyzer.AnalyzeRFP(ctx, *d.RFP)
	if err != nil {
		return fmt.Errorf("rfp analysis failed: %w", err)
	}
	d.Analysis = analysis
	advance(d) // analysis -> research
	return nil
}

func (p *Pipeline) RunResearch(ctx context.Context, d *Draft) error {
	if err := p.requireStep(d, StepResearch); err != nil {
		return err
	}
	if d.Analysis == nil {
		return fmt.Errorf("draft has no analysis result")
	}

	trends, err := p.Researcher.ResearchTrends(ctx, *d.Analysis)
	if err != nil {
		return fmt.Errorf("trend research failed: %w", err)
	}
	d.Trends = trends

	strategies, err := p.Planner.GenerateStrategies(ctx, *d.Analysis, trends)
	if err != nil {
		return fmt.Errorf("strategy generation failed: %w", err)
	}
	d.Strategies = strategies

	evaluations, err := p.Planner.EvaluateStrategies(ctx, strategies, *d.Analysis)
	if err != nil {
		return fmt.Errorf("strategy evaluation failed: %w", err)
	}
	d.Evaluations = evaluations
	advance(d) // research -> strategy
	return nil
}

// SelectStrategy records the chosen option and moves to curriculum matching.
func (p *Pipeline) SelectStrategy(ctx context.Context, d *Draft, strategyID string) error {
	if err := p.requireStep(d, StepStrategy); err != nil {
		return err
	}
	for i := range d.Strategies {
		if d.Strategies[i].ID == strategyID {
			d.Chosen = &d.Strategies[i]
			advance(d) // strategy -> curriculum
			return nil
		}
	}
	return fmt.Errorf("strategy %q not among generated options", strategyID)
}

func (p *Pipeline) RunMatching(ctx context.Context, d *Draft) error {
	if err := p.requireStep(d, StepCurriculum); err != nil {
		return err
	}
	if d.Chosen == nil {
		return fmt.Errorf("no strategy selected")
	}

	matches, err := p.Matcher.MatchCurriculum(ctx, *d.Analysis, *d.Chosen)
	if err != nil {
		return fmt.Errorf("curriculum matching failed: %w", err)
	}
	d.Matches = matches

	slides, err := p.Builder.BuildSlides(ctx, *d.Analysis, d.Trends, matches)
	if err != nil {
		return fmt.Errorf("slide assembly failed: %w", err)
	}
	d.Slides = slides
	advance(d) // curriculum -> preview
	return nil
}

// Finalize scores the assembled deck and completes the draft.
func (p *Pipeline) Finalize(ctx context.Context, d *Draft) error {
	if err := p.requireStep(d, StepPreview); err != nil {
		return err
	}

	quality, err := p.Scorer.ScoreProposal(ctx, d.Slides, *d.Analysis, d.Matches)
	if err != nil {
		return fmt.Errorf("quality scoring failed: %w", err)
	}
	d.Quality = quality
	advance(d) // preview -> complete
	return nil
}

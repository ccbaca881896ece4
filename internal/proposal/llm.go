package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hankyul/bidwatch/internal/ai"
	"github.com/hankyul/bidwatch/internal/models"
)

// CourseSearcher finds stored courses nearest to an embedding vector.
type CourseSearcher interface {
	SearchCoursesByEmbedding(ctx context.Context, embedding []float32, limit int) ([]models.Course, error)
}

// LLM backs the analysis, research, strategy and scoring stages with a local
// Ollama model and matches curriculum modules against the course library via
// embedding search. Slide assembly stays deterministic.
type LLM struct {
	Client  *ai.OllamaClient
	Courses CourseSearcher

	fallback Stub
}

// NewLLMPipeline wires the model-backed stages, keeping slide assembly on the
// deterministic builder. A nil searcher degrades curriculum matching to the
// canned output.
func NewLLMPipeline(client *ai.OllamaClient, courses CourseSearcher) *Pipeline {
	llm := &LLM{Client: client, Courses: courses}
	return &Pipeline{
		Analyzer:   llm,
		Researcher: llm,
		Planner:    llm,
		Matcher:    llm,
		Builder:    &llm.fallback,
		Scorer:     llm,
	}
}

// completeJSON runs a JSON-mode completion and decodes the reply into out.
func (l *LLM) completeJSON(ctx context.Context, prompt string, out any) error {
	raw, err := l.Client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("model returned malformed JSON: %w", err)
	}
	return nil
}

func (l *LLM) AnalyzeRFP(ctx context.Context, rfp RFPMetadata) (*AnalysisResult, error) {
	// A bid-sourced draft already carries structured fields; the keyword
	// transform is more reliable than re-extracting them from prose.
	if rfp.Bid != nil && rfp.Text == "" {
		result := AnalysisFromBid(*rfp.Bid)
		return &result, nil
	}

	prompt := fmt.Sprintf(`다음 제안요청서(RFP) 본문을 분석해 JSON으로 답하세요.
필드: client_name, industry, department, program_name, objectives (배열),
target_audience, schedule, location, modules (배열), special_requests.

본문:
%s`, clipPrompt(rfp.Text))

	var result AnalysisResult
	if err := l.completeJSON(ctx, prompt, &result); err != nil {
		return nil, fmt.Errorf("rfp analysis: %w", err)
	}
	if result.ProgramName == "" {
		result.ProgramName = rfp.FileName
	}
	if len(result.Modules) == 0 {
		result.Modules = modulesFromTitle(result.ProgramName)
	}
	return &result, nil
}

func (l *LLM) ResearchTrends(ctx context.Context, analysis AnalysisResult) ([]TrendInsight, error) {
	prompt := fmt.Sprintf(`%s 산업의 "%s" 교육 프로그램과 관련된 최신 교육 트렌드 3가지를
JSON으로 답하세요. 형식: {"trends": [{"topic": ..., "insight": ..., "source": ..., "relevance_score": 0.0~1.0}]}`,
		analysis.Industry, analysis.ProgramName)

	var reply struct {
		Trends []TrendInsight `json:"trends"`
	}
	if err := l.completeJSON(ctx, prompt, &reply); err != nil {
		return nil, fmt.Errorf("trend research: %w", err)
	}
	if len(reply.Trends) == 0 {
		return nil, fmt.Errorf("model returned no trends")
	}
	return reply.Trends, nil
}

func (l *LLM) GenerateStrategies(ctx context.Context, analysis AnalysisResult, trends []TrendInsight) ([]StrategyOption, error) {
	var topics []string
	for _, t := range trends {
		topics = append(topics, t.Topic)
	}
	prompt := fmt.Sprintf(`"%s" 교육 제안을 위한 설계 전략 3가지를 JSON으로 답하세요.
고려할 트렌드: %s.
형식: {"strategies": [{"id": ..., "title": ..., "description": ..., "key_features": [...], "focus_area": ...}]}`,
		analysis.ProgramName, strings.Join(topics, ", "))

	var reply struct {
		Strategies []StrategyOption `json:"strategies"`
	}
	if err := l.completeJSON(ctx, prompt, &reply); err != nil {
		return nil, fmt.Errorf("strategy generation: %w", err)
	}
	if len(reply.Strategies) == 0 {
		return nil, fmt.Errorf("model returned no strategies")
	}
	for i := range reply.Strategies {
		if reply.Strategies[i].ID == "" {
			reply.Strategies[i].ID = fmt.Sprintf("strategy-%d", i+1)
		}
	}
	return reply.Strategies, nil
}

func (l *LLM) EvaluateStrategies(ctx context.Context, options []StrategyOption, analysis AnalysisResult) ([]StrategyEvaluation, error) {
	encoded, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode strategy options: %w", err)
	}
	prompt := fmt.Sprintf(`%s 고객의 "%s" 과정 기준으로 아래 전략들을 평가해 JSON으로 답하세요.
형식: {"evaluations": [{"strategy_id": ..., "score": 0~100, "reasoning": ..., "pros": [...], "cons": [...]}]}

전략: %s`, analysis.ClientName, analysis.ProgramName, encoded)

	var reply struct {
		Evaluations []StrategyEvaluation `json:"evaluations"`
	}
	if err := l.completeJSON(ctx, prompt, &reply); err != nil {
		return nil, fmt.Errorf("strategy evaluation: %w", err)
	}
	return reply.Evaluations, nil
}

func (l *LLM) MatchCurriculum(ctx context.Context, analysis AnalysisResult, strategy StrategyOption) ([]CourseMatch, error) {
	if l.Courses == nil {
		return l.fallback.MatchCurriculum(ctx, analysis, strategy)
	}

	var matches []CourseMatch
	for _, module := range analysis.Modules {
		embedding, err := l.Client.GenerateEmbedding(ctx, module+" "+strategy.FocusArea)
		if err != nil {
			return nil, fmt.Errorf("embed module %q: %w", module, err)
		}
		courses, err := l.Courses.SearchCoursesByEmbedding(ctx, embedding, 1)
		if err != nil {
			return nil, fmt.Errorf("course search for %q: %w", module, err)
		}
		if len(courses) == 0 {
			log.Printf("[Proposal] no course in library for module %q, marking external", module)
			matches = append(matches, CourseMatch{
				ModuleName:  module,
				CourseTitle: module + " (외부 과정)",
				Instructor:  "외부 전문강사",
				MatchReason: "보유 과정 중 일치하는 커리큘럼이 없습니다.",
				MatchScore:  0,
				IsExternal:  true,
			})
			continue
		}
		course := courses[0]
		matches = append(matches, CourseMatch{
			ModuleName:  module,
			CourseTitle: course.Title,
			Instructor:  course.Instructor,
			MatchReason: fmt.Sprintf("%s 모듈과 과정 주제(%s)가 가장 유사합니다.", module, strings.Join(course.Topics, ", ")),
			MatchScore:  0.85,
			IsExternal:  course.IsExternal,
		})
	}
	return matches, nil
}

func (l *LLM) ScoreProposal(ctx context.Context, slides []Slide, analysis AnalysisResult, matches []CourseMatch) (*QualityAssessment, error) {
	deck, err := json.Marshal(slides)
	if err != nil {
		return nil, fmt.Errorf("encode slides: %w", err)
	}
	prompt := fmt.Sprintf(`아래 제안서 슬라이드 구성을 세 축으로 평가해 JSON으로 답하세요.
축: compliance_score, instructor_expertise_score, industry_match_score (각 0~100)
각 축에 대응하는 compliance_reason, instructor_expertise_reason, industry_match_reason과
overall_comment도 포함하세요.

고객: %s / 산업: %s
슬라이드: %s`, analysis.ClientName, analysis.Industry, deck)

	var result QualityAssessment
	if err := l.completeJSON(ctx, prompt, &result); err != nil {
		return nil, fmt.Errorf("quality scoring: %w", err)
	}
	result.TotalScore = result.ComplianceScore*0.4 + result.InstructorExpertiseScore*0.3 + result.IndustryMatchScore*0.3
	result.AssessedAt = time.Now()
	return &result, nil
}

const maxPromptChars = 8000

func clipPrompt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptChars {
		return text
	}
	return string(runes[:maxPromptChars])
}

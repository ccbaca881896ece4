package proposal

import (
	"context"
	"fmt"
	"time"
)

// Stub implements every pipeline stage with deterministic canned output
// after a short delay, standing in for the real model during development
// and tests.
type Stub struct {
	// Delay per stage; zero means no wait (tests).
	Delay time.Duration
}

func (s *Stub) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.Delay):
		return nil
	}
}

func (s *Stub) AnalyzeRFP(ctx context.Context, rfp RFPMetadata) (*AnalysisResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if rfp.Bid != nil {
		result := AnalysisFromBid(*rfp.Bid)
		return &result, nil
	}
	return &AnalysisResult{
		ClientName:      "공공기관",
		Industry:        "공공/교육",
		Department:      "인재개발팀",
		ProgramName:     rfp.FileName,
		Objectives:      []string{"핵심 역량 강화", "실무 역량 향상"},
		TargetAudience:  "전 직원",
		Schedule:        "협의 후 결정",
		Location:        "고객사 지정 장소",
		Modules:         []string{"리더십 개발", "커뮤니케이션 스킬"},
		SpecialRequests: "",
	}, nil
}

func (s *Stub) ResearchTrends(ctx context.Context, analysis AnalysisResult) ([]TrendInsight, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return []TrendInsight{
		{Topic: "AI 활용 교육", Insight: analysis.Industry + " 분야에서 생성형 AI 실무 적용 교육 수요가 증가하고 있습니다.", Source: "industry-report", RelevanceScore: 0.92},
		{Topic: "마이크로러닝", Insight: "짧은 모듈 단위 학습이 집합 교육의 보완재로 자리잡고 있습니다.", Source: "trend-scan", RelevanceScore: 0.81},
		{Topic: "성과 연계 평가", Insight: "교육 성과를 현업 KPI와 연계하는 평가 설계가 표준이 되고 있습니다.", Source: "trend-scan", RelevanceScore: 0.77},
	}, nil
}

func (s *Stub) GenerateStrategies(ctx context.Context, analysis AnalysisResult, trends []TrendInsight) ([]StrategyOption, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return []StrategyOption{
		{
			ID:          "strategy-practice",
			Title:       "실습 중심 전략",
			Description: "현업 사례 기반 실습과 워크숍으로 구성한 과정 설계",
			KeyFeatures: []string{"사례 기반 실습", "현업 과제 연계", "소그룹 코칭"},
			FocusArea:   "실무 적용",
		},
		{
			ID:          "strategy-blended",
			Title:       "블렌디드 러닝 전략",
			Description: "사전 온라인 학습과 집합 교육을 결합한 하이브리드 설계",
			KeyFeatures: []string{"사전 온라인 모듈", "집합 워크숍", "사후 팔로업"},
			FocusArea:   "학습 지속성",
		},
		{
			ID:          "strategy-expert",
			Title:       "전문가 특강 전략",
			Description: "분야별 전문가 특강 중심의 인사이트 전달형 설계",
			KeyFeatures: []string{"전문가 특강", "패널 토론", "Q&A 세션"},
			FocusArea:   "전문성 전달",
		},
	}, nil
}

func (s *Stub) EvaluateStrategies(ctx context.Context, options []StrategyOption, analysis AnalysisResult) ([]StrategyEvaluation, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	evals := make([]StrategyEvaluation, 0, len(options))
	base := 88.0
	for i, opt := range options {
		evals = append(evals, StrategyEvaluation{
			StrategyID: opt.ID,
			Score:      base - float64(i*4),
			Reasoning:  fmt.Sprintf("%s은(는) %s 목표와의 정합성이 높습니다.", opt.Title, analysis.Industry),
			Pros:       []string{"요구사항 부합", "실행 용이성"},
			Cons:       []string{"일정 조율 필요"},
		})
	}
	return evals, nil
}

func (s *Stub) MatchCurriculum(ctx context.Context, analysis AnalysisResult, strategy StrategyOption) ([]CourseMatch, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	matches := make([]CourseMatch, 0, len(analysis.Modules))
	for i, module := range analysis.Modules {
		matches = append(matches, CourseMatch{
			ModuleName:  module,
			CourseTitle: module + " 과정",
			Instructor:  "내부 전임강사",
			MatchReason: fmt.Sprintf("%s 모듈과 커리큘럼 키워드가 일치합니다.", module),
			MatchScore:  0.9 - float64(i)*0.05,
			IsExternal:  false,
		})
	}
	return matches, nil
}

func (s *Stub) BuildSlides(ctx context.Context, analysis AnalysisResult, trends []TrendInsight, matches []CourseMatch) ([]Slide, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	slides := []Slide{
		{Seq: 1, Type: SlideCover, Title: analysis.ProgramName + " 제안서", Content: analysis.ClientName},
		{Seq: 2, Type: SlideAgenda, Title: "목차", Content: "과정 개요 / 트렌드 / 커리큘럼 / 강사진 / 일정"},
		{Seq: 3, Type: SlideOverview, Title: "과정 개요", Content: fmt.Sprintf("대상: %s, 장소: %s", analysis.TargetAudience, analysis.Location)},
	}
	seq := len(slides)
	for _, trend := range trends {
		seq++
		slides = append(slides, Slide{Seq: seq, Type: SlideTrend, Title: trend.Topic, Content: trend.Insight})
	}
	for _, match := range matches {
		seq++
		slides = append(slides, Slide{Seq: seq, Type: SlideCurriculum, Title: match.ModuleName, Content: match.CourseTitle + " / " + match.Instructor})
	}
	seq++
	slides = append(slides, Slide{Seq: seq, Type: SlideSchedule, Title: "교육 일정", Content: analysis.Schedule})
	seq++
	slides = append(slides, Slide{Seq: seq, Type: SlideClosing, Title: "감사합니다", Content: analysis.ClientName + " 담당자님께 드리는 제안"})
	return slides, nil
}

func (s *Stub) ScoreProposal(ctx context.Context, slides []Slide, analysis AnalysisResult, matches []CourseMatch) (*QualityAssessment, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	compliance := 90.0
	if len(slides) < 5 {
		compliance = 70.0
	}
	expertise := 85.0
	for _, m := range matches {
		if m.IsExternal {
			expertise -= 3
		}
	}
	industry := 88.0

	total := compliance*0.4 + expertise*0.3 + industry*0.3
	return &QualityAssessment{
		ComplianceScore:           compliance,
		ComplianceReason:          "제안요청서의 필수 구성 요소를 모두 포함하고 있습니다.",
		InstructorExpertiseScore:  expertise,
		InstructorExpertiseReason: "매칭된 강사진의 전문 분야가 모듈 구성과 부합합니다.",
		IndustryMatchScore:        industry,
		IndustryMatchReason:       analysis.Industry + " 산업 특성이 커리큘럼에 반영되어 있습니다.",
		TotalScore:                total,
		OverallComment:            "제출 가능한 수준의 제안서입니다.",
		AssessedAt:                time.Now(),
	}, nil
}

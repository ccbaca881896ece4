package proposal

import (
	"time"

	"github.com/google/uuid"
	"github.com/hankyul/bidwatch/internal/models"
)

// RFPMetadata describes the uploaded request-for-proposal, whether it came
// from a file upload or directly from a stored bid notice.
type RFPMetadata struct {
	FileName   string             `json:"file_name"`
	UploadDate time.Time          `json:"upload_date"`
	FileSize   int64              `json:"file_size"`
	Source     string             `json:"source"` // "file" or "bid"
	Bid        *models.BidNotice  `json:"bid,omitempty"`
	Text       string             `json:"text,omitempty"` // extracted document text
}

// AnalysisResult is the structured reading of an RFP.
type AnalysisResult struct {
	ClientName      string   `json:"client_name"`
	Industry        string   `json:"industry"`
	Department      string   `json:"department"`
	ProgramName     string   `json:"program_name"`
	Objectives      []string `json:"objectives"`
	TargetAudience  string   `json:"target_audience"`
	Schedule        string   `json:"schedule"`
	Location        string   `json:"location"`
	Modules         []string `json:"modules"`
	SpecialRequests string   `json:"special_requests"`
}

type TrendInsight struct {
	Topic          string  `json:"topic"`
	Insight        string  `json:"insight"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}

type StrategyOption struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"key_features"`
	FocusArea   string   `json:"focus_area"`
}

type StrategyEvaluation struct {
	StrategyID string   `json:"strategy_id"`
	Score      float64  `json:"score"`
	Reasoning  string   `json:"reasoning"`
	Pros       []string `json:"pros"`
	Cons       []string `json:"cons"`
}

type CourseMatch struct {
	ModuleName  string  `json:"module_name"`
	CourseTitle string  `json:"course_title"`
	Instructor  string  `json:"instructor"`
	MatchReason string  `json:"match_reason"`
	MatchScore  float64 `json:"match_score"`
	IsExternal  bool    `json:"is_external"`
}

// SlideType tags the role of a slide in the assembled deck.
type SlideType string

const (
	SlideCover      SlideType = "cover"
	SlideAgenda     SlideType = "agenda"
	SlideOverview   SlideType = "overview"
	SlideTrend      SlideType = "trend"
	SlideCurriculum SlideType = "curriculum"
	SlideInstructor SlideType = "instructor"
	SlideSchedule   SlideType = "schedule"
	SlideClosing    SlideType = "closing"
)

type Slide struct {
	Seq     int       `json:"seq"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Type    SlideType `json:"type"`
}

// QualityAssessment scores the assembled proposal on three axes plus a
// weighted total.
type QualityAssessment struct {
	ComplianceScore           float64   `json:"compliance_score"`
	ComplianceReason          string    `json:"compliance_reason"`
	InstructorExpertiseScore  float64   `json:"instructor_expertise_score"`
	InstructorExpertiseReason string    `json:"instructor_expertise_reason"`
	IndustryMatchScore        float64   `json:"industry_match_score"`
	IndustryMatchReason       string    `json:"industry_match_reason"`
	TotalScore                float64   `json:"total_score"`
	OverallComment            string    `json:"overall_comment"`
	AssessedAt                time.Time `json:"assessed_at"`
}

// Draft accumulates the outputs of each pipeline stage as the wizard
// advances.
type Draft struct {
	ID          uuid.UUID            `json:"id"`
	Title       string               `json:"title"`
	Step        Step                 `json:"step"`
	RFP         *RFPMetadata         `json:"rfp,omitempty"`
	Analysis    *AnalysisResult      `json:"analysis,omitempty"`
	Trends      []TrendInsight       `json:"trends,omitempty"`
	Strategies  []StrategyOption     `json:"strategies,omitempty"`
	Evaluations []StrategyEvaluation `json:"evaluations,omitempty"`
	Chosen      *StrategyOption      `json:"chosen_strategy,omitempty"`
	Matches     []CourseMatch        `json:"matches,omitempty"`
	Slides      []Slide              `json:"slides,omitempty"`
	Quality     *QualityAssessment   `json:"quality,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

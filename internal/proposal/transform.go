package proposal

import (
	"strings"

	"github.com/hankyul/bidwatch/internal/models"
)

// AnalysisFromBid derives an initial RFP analysis from a bid notice alone,
// before any document has been uploaded. It is keyword-driven and
// deliberately conservative: unknown inputs fall back to generic defaults.
func AnalysisFromBid(bid models.BidNotice) AnalysisResult {
	client := bid.DemandInst
	if client == "" {
		client = bid.NoticeInst
	}

	return AnalysisResult{
		ClientName:      client,
		Industry:        industryFromClassification(bid.Industry),
		Department:      "교육 담당 부서",
		ProgramName:     bid.Title,
		Objectives:      objectivesFromTitle(bid.Title),
		TargetAudience:  "발주기관 지정 교육 대상",
		Schedule:        scheduleFromDates(bid.BidBeginDt, bid.BidCloseDt),
		Location:        bid.Region,
		Modules:         modulesFromTitle(bid.Title),
		SpecialRequests: "",
	}
}

func industryFromClassification(industryName string) string {
	switch {
	case industryName == "":
		return "공공/교육"
	case strings.Contains(industryName, "교육"):
		return "교육"
	case strings.Contains(industryName, "제조"):
		return "제조/생산"
	case strings.Contains(industryName, "건설"):
		return "건설/인프라"
	case strings.Contains(industryName, "IT"), strings.Contains(industryName, "정보통신"):
		return "IT/통신"
	case strings.Contains(industryName, "금융"):
		return "금융/보험"
	case strings.Contains(industryName, "의료"), strings.Contains(industryName, "보건"):
		return "의료/보건"
	}
	return industryName
}

func objectivesFromTitle(title string) []string {
	var objectives []string
	if strings.Contains(title, "역량강화") || strings.Contains(title, "역량 강화") {
		objectives = append(objectives, "핵심 역량 강화")
	}
	if strings.Contains(title, "리더십") {
		objectives = append(objectives, "리더십 개발")
	}
	if strings.Contains(title, "교육") || strings.Contains(title, "과정") {
		objectives = append(objectives, "전문 교육 실시")
	}
	if strings.Contains(title, "워크숍") || strings.Contains(title, "세미나") {
		objectives = append(objectives, "실무 워크숍 진행")
	}
	if strings.Contains(title, "컨설팅") {
		objectives = append(objectives, "전문 컨설팅 제공")
	}
	if len(objectives) == 0 {
		objectives = []string{"교육 프로그램 운영", "실무 역량 향상"}
	}
	return objectives
}

func modulesFromTitle(title string) []string {
	var modules []string
	if strings.Contains(title, "리더십") {
		modules = append(modules, "리더십 개발")
	}
	if strings.Contains(title, "소통") || strings.Contains(title, "커뮤니케이션") {
		modules = append(modules, "커뮤니케이션 스킬")
	}
	if strings.Contains(title, "AI") || strings.Contains(title, "인공지능") {
		modules = append(modules, "AI 활용 교육")
	}
	if strings.Contains(title, "DT") || strings.Contains(title, "디지털") {
		modules = append(modules, "디지털 트랜스포메이션")
	}
	if strings.Contains(title, "데이터") {
		modules = append(modules, "데이터 분석")
	}
	if strings.Contains(title, "안전") {
		modules = append(modules, "안전 교육")
	}
	if strings.Contains(title, "CS") || strings.Contains(title, "고객") {
		modules = append(modules, "고객 서비스")
	}
	if strings.Contains(title, "ESG") {
		modules = append(modules, "ESG 경영")
	}
	if len(modules) == 0 {
		modules = []string{"교육 프로그램 모듈 1", "교육 프로그램 모듈 2"}
	}
	return modules
}

// scheduleFromDates renders a YYYYMMDDHHMM pair as a human-readable range.
func scheduleFromDates(beginDt, closeDt string) string {
	begin := formatDt(beginDt)
	end := formatDt(closeDt)
	switch {
	case begin != "" && end != "":
		return begin + " ~ " + end
	case begin != "":
		return begin + " 시작"
	case end != "":
		return end + " 마감"
	}
	return "협의 후 결정"
}

func formatDt(dt string) string {
	if len(dt) < 8 {
		return ""
	}
	return dt[0:4] + "." + dt[4:6] + "." + dt[6:8]
}

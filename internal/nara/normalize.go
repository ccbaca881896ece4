package nara

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hankyul/bidwatch/internal/models"
)

// Normalize maps one raw upstream item onto the canonical BidNotice shape.
// It is total over arbitrary input: unknown or missing fields degrade to
// empty strings, never an error.
func Normalize(raw RawItem) models.BidNotice {
	// The notice timestamp may arrive combined (bidNtceDt, YYYYMMDDHHMM) or as
	// separate date/time parts that need concatenation. It must always end up
	// populated: sorting and the incremental window both depend on it.
	noticeDt := raw.Str("bidNtceDt")
	if noticeDt == "" {
		if datePart := raw.Str("bidNtceDate"); datePart != "" {
			timePart := raw.Str("bidNtceBgn", "bidBeginTm")
			if timePart == "" {
				timePart = "00:00"
			}
			noticeDt = stripDateSeps(datePart) + stripTimeSeps(timePart)
		}
	}

	beginDt := raw.Str("bidNtceBgnDt")
	if beginDt == "" {
		if d := raw.Str("bidBeginDate"); d != "" {
			t := raw.Str("bidBeginTm")
			if t == "" {
				t = "0000"
			}
			beginDt = stripDateSeps(d) + stripTimeSeps(t)
		}
	}

	closeDt := raw.Str("bidNtceEndDt")
	if closeDt == "" {
		if d := raw.Str("bidClseDate"); d != "" {
			t := raw.Str("bidClseTm")
			if t == "" {
				t = "0000"
			}
			closeDt = stripDateSeps(d) + stripTimeSeps(t)
		}
	}

	title := cleanText(htmlToText(raw.Str("bidNtceNm")))
	if title == "" {
		title = "공고명 없음"
	}

	ord := raw.Str("bidNtceOrd")
	if ord == "" {
		ord = "00"
	}

	return models.BidNotice{
		NoticeNo:   raw.Str("bidNtceNo"),
		NoticeOrd:  ord,
		Title:      title,
		NoticeDt:   noticeDt,
		NoticeInst: raw.Str("ntceInsttNm"),
		DemandInst: raw.Str("dminsttNm", "dmndInsttNm"),
		BidBeginDt: beginDt,
		BidCloseDt: closeDt,
		Region:     raw.Str("prtcptPsblRgnNm"),
		Industry:   raw.Str("bidprcPsblIndstrytyNm"),
		DetailURL:  repairURL(raw.Str("bidNtceUrl")),
		Status:     raw.Str("bidNtceSttusNm"),
		Division:   raw.Str("bsnsDivNm"),
		EstPrice:   raw.Str("presmptPrce", "asignBdgtAmt"),
	}
}

// repairURL fixes detail URLs where the upstream emitted '^' in place of '&'
// between query parameters.
func repairURL(u string) string {
	if strings.Contains(u, "^") {
		return strings.ReplaceAll(u, "^", "&")
	}
	return u
}

func stripDateSeps(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

func stripTimeSeps(s string) string {
	return strings.ReplaceAll(s, ":", "")
}

// htmlToText strips any markup that leaked into a text field.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

// cleanText collapses runs of whitespace and trims the string.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FilterByTitle keeps records whose title contains the keyword. When keyword
// is empty, the fallback keyword set applies instead; an empty fallback set
// means no filtering.
func FilterByTitle(records []models.BidNotice, keyword string, fallback []string) []models.BidNotice {
	if keyword == "" && len(fallback) == 0 {
		return records
	}

	out := make([]models.BidNotice, 0, len(records))
	for _, rec := range records {
		if keyword != "" {
			if strings.Contains(rec.Title, keyword) {
				out = append(out, rec)
			}
			continue
		}
		for _, kw := range fallback {
			if strings.Contains(rec.Title, kw) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

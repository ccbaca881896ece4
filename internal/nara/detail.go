package nara

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/microcosm-cc/bluemonday"
)

// DetailFetcher scrapes a notice's external detail page for a plain-text
// summary. Enrichment is best effort; a failure never blocks a sync run.
type DetailFetcher struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxSummaryLen  int

	sanitizer *bluemonday.Policy
}

func NewDetailFetcher() *DetailFetcher {
	return &DetailFetcher{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RequestTimeout: 20 * time.Second,
		MaxSummaryLen:  500,
		sanitizer:      bluemonday.StrictPolicy(),
	}
}

// FetchSummary loads the detail page behind a bidNtceUrl and extracts a
// sanitized text summary from the notice body.
func (f *DetailFetcher) FetchSummary(detailURL string) (string, error) {
	if detailURL == "" {
		return "", fmt.Errorf("no detail URL")
	}

	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(5*1024*1024),
		colly.DetectCharset(),
	)
	c.SetRequestTimeout(f.RequestTimeout)

	var summary string
	var fetchErr error

	c.OnHTML("body", func(e *colly.HTMLElement) {
		summary = f.extractSummary(e.DOM)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(detailURL); err != nil {
		return "", fmt.Errorf("detail fetch failed: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fmt.Errorf("detail fetch failed: %w", fetchErr)
	}
	if summary == "" {
		log.Printf("[Detail] No summary content found at %s", detailURL)
	}
	return summary, nil
}

func (f *DetailFetcher) extractSummary(doc *goquery.Selection) string {
	// Notice bodies on the procurement portal sit in a handful of known
	// containers; fall back to the whole body text.
	var block string
	for _, sel := range []string{".notice_cont", ".bid_detail", "#container", "body"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			block = node.Text()
			if strings.TrimSpace(block) != "" {
				break
			}
		}
	}

	text := cleanText(f.sanitizer.Sanitize(block))
	if runes := []rune(text); len(runes) > f.MaxSummaryLen {
		text = string(runes[:f.MaxSummaryLen])
	}
	return text
}

package nara

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hankyul/bidwatch/internal/config"
	"github.com/hankyul/bidwatch/internal/models"
)

const (
	// PageSize is the fixed numOfRows for every page request.
	PageSize = 50
	// MaxPages bounds how many pages a single aggregation will fetch.
	MaxPages = 40
)

// Client fetches bid notices from the G2B open-data API.
type Client struct {
	HTTP     *http.Client
	Endpoint string

	serviceKey      string // encoded per the settings toggle, ready for the query string
	defaultKeywords []string
}

// NewClient prepares a client from API settings. The service key is encoded
// here, once, according to the configured toggle; keys that already contain
// percent-escapes must be configured with encode_key=false or authentication
// fails silently with an XML error body.
func NewClient(api config.APISettings, defaultKeywords []string) *Client {
	key := strings.TrimSpace(api.ServiceKey)
	if api.EncodeKey {
		key = url.QueryEscape(key)
	}
	return &Client{
		HTTP:            &http.Client{Timeout: 30 * time.Second},
		Endpoint:        api.Endpoint,
		serviceKey:      key,
		defaultKeywords: defaultKeywords,
	}
}

// Window is the date range for a fetch, both bounds in YYYY-MM-DD form.
type Window struct {
	Start string
	End   string
}

// formatWindowDate serializes a YYYY-MM-DD date to the YYYYMMDDHHMM form the
// API expects, with 0000 for start bounds and 2359 for end bounds.
func formatWindowDate(dateStr string, isEnd bool) string {
	parts := strings.Split(dateStr, "-")
	if len(parts) != 3 {
		return ""
	}
	suffix := "0000"
	if isEnd {
		suffix = "2359"
	}
	return parts[0] + parts[1] + parts[2] + suffix
}

// pageURL builds the full query string for one page. The service key is
// already encoded, so the query is assembled by hand rather than through
// url.Values (which would escape it a second time).
func (c *Client) pageURL(page int, w Window, rows int) string {
	params := []string{
		"serviceKey=" + c.serviceKey,
		fmt.Sprintf("pageNo=%d", page),
		fmt.Sprintf("numOfRows=%d", rows),
		"type=json",
		"bidNtceBgnDt=" + formatWindowDate(w.Start, false),
		"bidNtceEndDt=" + formatWindowDate(w.End, true),
	}
	return c.Endpoint + "?" + strings.Join(params, "&")
}

// redactKey elides most of the credential from a URL so it can be surfaced
// as a debug string without leaking the full key.
func (c *Client) redactKey(rawURL string) string {
	if len(c.serviceKey) > 10 {
		return strings.Replace(rawURL, c.serviceKey, c.serviceKey[:10]+"...", 1)
	}
	return rawURL
}

// FetchPage fetches and normalizes one page. Every failure mode (transport,
// non-2xx, XML error body, JSON parse failure, non-"00" result code) is
// returned as a page-scoped error, never raised further.
func (c *Client) FetchPage(ctx context.Context, page int, w Window) PageResult {
	fetchURL := c.pageURL(page, w, PageSize)
	result := PageResult{RawURL: c.redactKey(fetchURL)}

	log.Printf("[API] Fetching page %d", page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		result.Err = fmt.Errorf("failed to create request: %w", err)
		return result
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("network error: %w", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("network error: status %d", resp.StatusCode)
		return result
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = fmt.Errorf("failed to read response: %w", err)
		return result
	}

	text := strings.TrimSpace(string(body))

	// Auth and quota failures come back as XML regardless of type=json.
	if strings.HasPrefix(text, "<") {
		if msg := extractXMLMessage(text); msg != "" {
			result.Err = fmt.Errorf("API error: %s", msg)
		} else {
			result.Err = fmt.Errorf("API returned XML instead of JSON")
		}
		return result
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		result.Err = fmt.Errorf("JSON parse failure: %w", err)
		return result
	}

	if code := envelope.Response.Header.ResultCode; code != "00" {
		result.Err = fmt.Errorf("API result code %s (%s)", code, envelope.Response.Header.ResultMsg)
		return result
	}

	records := make([]models.BidNotice, 0, len(envelope.Response.Body.Items.Items))
	for _, raw := range envelope.Response.Body.Items.Items {
		records = append(records, Normalize(raw))
	}

	result.Records = records
	result.TotalCount = envelope.Response.Body.TotalCount
	return result
}

// extractXMLMessage pulls the human-readable message out of an XML error
// body. The two observed elements are errMsg and returnAuthMsg.
func extractXMLMessage(text string) string {
	decoder := xml.NewDecoder(strings.NewReader(text))
	var current string
	for {
		tok, err := decoder.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.CharData:
			if current == "errMsg" || current == "returnAuthMsg" {
				if msg := strings.TrimSpace(string(t)); msg != "" {
					return msg
				}
			}
		case xml.EndElement:
			current = ""
		}
	}
}

// Test issues a one-row probe over the last 30 days and reports whether the
// configured credential works.
func (c *Client) Test(ctx context.Context) (bool, string) {
	now := time.Now()
	w := Window{
		Start: now.AddDate(0, 0, -30).Format("2006-01-02"),
		End:   now.Format("2006-01-02"),
	}

	fetchURL := c.pageURL(1, w, 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return false, fmt.Sprintf("failed to create request: %v", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Sprintf("network error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Sprintf("failed to read response: %v", err)
	}

	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "<") {
		if msg := extractXMLMessage(text); msg != "" {
			return false, fmt.Sprintf("API error (XML): %s", msg)
		}
		return false, "API returned XML instead of JSON (likely a key authentication failure)"
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, "response is not valid JSON"
	}

	header := envelope.Response.Header
	if header.ResultCode != "00" {
		return false, fmt.Sprintf("API result code %s (%s)", header.ResultCode, header.ResultMsg)
	}

	return true, fmt.Sprintf("connection OK (%d notices in the last 30 days)", envelope.Response.Body.TotalCount)
}

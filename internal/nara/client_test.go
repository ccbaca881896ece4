package nara

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hankyul/bidwatch/internal/config"
)

func newTestClient(endpoint string) *Client {
	return NewClient(config.APISettings{
		Endpoint:   endpoint,
		ServiceKey: "test-key-1234567890",
		EncodeKey:  false,
	}, nil)
}

func TestFetchPageShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantTotal int
	}{
		{
			name: "items as wrapper with array",
			body: `{"response":{"header":{"resultCode":"00","resultMsg":"OK"},
				"body":{"items":{"item":[{"bidNtceNo":"1","bidNtceNm":"교육 A"},{"bidNtceNo":"2","bidNtceNm":"교육 B"}]},"totalCount":2}}}`,
			wantCount: 2,
			wantTotal: 2,
		},
		{
			name: "items as wrapper with single object",
			body: `{"response":{"header":{"resultCode":"00","resultMsg":"OK"},
				"body":{"items":{"item":{"bidNtceNo":"1","bidNtceNm":"교육 A"}},"totalCount":1}}}`,
			wantCount: 1,
			wantTotal: 1,
		},
		{
			name: "items as bare array",
			body: `{"response":{"header":{"resultCode":"00","resultMsg":"OK"},
				"body":{"items":[{"bidNtceNo":"1","bidNtceNm":"교육 A"}],"totalCount":1}}}`,
			wantCount: 1,
			wantTotal: 1,
		},
		{
			name: "empty string items degrade to zero records",
			body: `{"response":{"header":{"resultCode":"00","resultMsg":"OK"},
				"body":{"items":"","totalCount":0}}}`,
			wantCount: 0,
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			res := newTestClient(srv.URL).FetchPage(context.Background(), 1, Window{Start: "2026-01-01", End: "2026-01-31"})
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if len(res.Records) != tt.wantCount {
				t.Errorf("got %d records, want %d", len(res.Records), tt.wantCount)
			}
			if res.TotalCount != tt.wantTotal {
				t.Errorf("got total %d, want %d", res.TotalCount, tt.wantTotal)
			}
		})
	}
}

func TestFetchPageErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "XML auth failure surfaces the embedded message",
			status:  http.StatusOK,
			body:    `<OpenAPI_ServiceResponse><cmmMsgHeader><returnAuthMsg>SERVICE_KEY_IS_NOT_REGISTERED_ERROR</returnAuthMsg></cmmMsgHeader></OpenAPI_ServiceResponse>`,
			wantErr: "SERVICE_KEY_IS_NOT_REGISTERED_ERROR",
		},
		{
			name:    "XML without a known message element",
			status:  http.StatusOK,
			body:    `<error><something>broken</something></error>`,
			wantErr: "XML instead of JSON",
		},
		{
			name:    "non-00 result code",
			status:  http.StatusOK,
			body:    `{"response":{"header":{"resultCode":"07","resultMsg":"입력범위값 초과"},"body":{"totalCount":0}}}`,
			wantErr: "result code 07",
		},
		{
			name:    "server error status",
			status:  http.StatusInternalServerError,
			body:    "boom",
			wantErr: "status 500",
		},
		{
			name:    "malformed JSON",
			status:  http.StatusOK,
			body:    `{"response": not-json`,
			wantErr: "JSON parse failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			res := newTestClient(srv.URL).FetchPage(context.Background(), 1, Window{Start: "2026-01-01", End: "2026-01-31"})
			if res.Err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(res.Err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", res.Err, tt.wantErr)
			}
			if res.RawURL == "" {
				t.Error("failed page should still carry its debug URL")
			}
		})
	}
}

func TestPageURLWindowFormat(t *testing.T) {
	c := newTestClient("https://api.example")
	u := c.pageURL(3, Window{Start: "2026-01-05", End: "2026-02-10"}, 50)

	for _, want := range []string{
		"pageNo=3",
		"numOfRows=50",
		"type=json",
		"bidNtceBgnDt=202601050000",
		"bidNtceEndDt=202602102359",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("pageURL missing %q: %s", want, u)
		}
	}
}

func TestRedactKey(t *testing.T) {
	c := newTestClient("https://api.example")
	u := c.pageURL(1, Window{Start: "2026-01-01", End: "2026-01-02"}, 50)

	redacted := c.redactKey(u)
	if strings.Contains(redacted, "test-key-1234567890") {
		t.Errorf("full key leaked into debug URL: %s", redacted)
	}
	if !strings.Contains(redacted, "test-key-1...") {
		t.Errorf("redacted prefix missing: %s", redacted)
	}
}

func TestServiceKeyEncodingToggle(t *testing.T) {
	encoded := NewClient(config.APISettings{
		Endpoint:   "https://api.example",
		ServiceKey: "abc+def==",
		EncodeKey:  true,
	}, nil)
	if !strings.Contains(encoded.pageURL(1, Window{Start: "2026-01-01", End: "2026-01-02"}, 1), "serviceKey=abc%2Bdef%3D%3D") {
		t.Error("encode_key=true should percent-escape the key")
	}

	raw := NewClient(config.APISettings{
		Endpoint:   "https://api.example",
		ServiceKey: "abc%2Bdef%3D%3D",
		EncodeKey:  false,
	}, nil)
	if !strings.Contains(raw.pageURL(1, Window{Start: "2026-01-01", End: "2026-01-02"}, 1), "serviceKey=abc%2Bdef%3D%3D") {
		t.Error("encode_key=false must pass a pre-escaped key through untouched")
	}
}

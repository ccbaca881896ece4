package nara

import (
	"encoding/json"

	"github.com/hankyul/bidwatch/internal/models"
)

// RawItem is one loosely-typed record as returned by the upstream API.
// Field names and shapes vary between dataset versions, so everything is
// accessed through string lookups and normalized in Normalize.
type RawItem map[string]any

// Str returns the first non-empty string value among the given keys.
// Numeric values are formatted through the raw JSON representation.
func (r RawItem) Str(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case json.Number:
			return t.String()
		case float64:
			n, _ := json.Marshal(t)
			return string(n)
		}
	}
	return ""
}

// apiResponse mirrors the upstream envelope:
// {response: {header: {resultCode, resultMsg}, body: {items, totalCount, ...}}}.
type apiResponse struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      itemsContainer `json:"items"`
			TotalCount int            `json:"totalCount"`
			NumOfRows  int            `json:"numOfRows"`
			PageNo     int            `json:"pageNo"`
		} `json:"body"`
	} `json:"response"`
}

// itemsContainer tolerates the three observed shapes of the items field:
// a bare array, an object with an "item" array, or an object with a single
// "item" object.
type itemsContainer struct {
	Items []RawItem
}

func (c *itemsContainer) UnmarshalJSON(data []byte) error {
	c.Items = nil

	// Shape 1: bare array of items.
	var arr []RawItem
	if err := json.Unmarshal(data, &arr); err == nil {
		c.Items = arr
		return nil
	}

	// Shape 2/3: wrapper object with "item" as array or single object.
	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		// Unknown shape (e.g. empty string) degrades to no items, not an error.
		return nil
	}
	if len(wrapper.Item) == 0 {
		return nil
	}

	var inner []RawItem
	if err := json.Unmarshal(wrapper.Item, &inner); err == nil {
		c.Items = inner
		return nil
	}

	var single RawItem
	if err := json.Unmarshal(wrapper.Item, &single); err == nil {
		c.Items = []RawItem{single}
	}
	return nil
}

// PageResult is the outcome of fetching one page. Err is page-scoped: the
// caller decides whether a failed page is fatal (page 1) or ignorable.
type PageResult struct {
	Records    []models.BidNotice
	TotalCount int
	RawURL     string
	Err        error
}

// Result is the merged outcome of a full aggregation run.
type Result struct {
	Records      []models.BidNotice // after keyword filtering
	AllRecords   []models.BidNotice // every normalized record that was fetched
	TotalCount   int                // upstream-reported total for the window
	ScannedCount int                // records actually fetched across pages
	DebugURL     string             // exact page-1 query for manual reproduction
	Err          error
}

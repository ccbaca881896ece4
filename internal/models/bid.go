package models

import "time"

// BidNotice is one version of a procurement bid notice from the G2B open-data API.
// (NoticeNo, NoticeOrd) is the natural key; re-announcements increment NoticeOrd.
type BidNotice struct {
	NoticeNo   string `json:"bidNtceNo"`
	NoticeOrd  string `json:"bidNtceOrd"`
	Title      string `json:"bidNtceNm"`
	NoticeDt   string `json:"bidNtceDt"` // YYYYMMDDHHMM, drives all sorting and incremental windows
	NoticeInst string `json:"ntceInsttNm"`
	DemandInst string `json:"dminsttNm"`
	BidBeginDt string `json:"bidNtceBgnDt"`
	BidCloseDt string `json:"bidNtceEndDt"`
	Region     string `json:"prtcptPsblRgnNm"`
	Industry   string `json:"bidprcPsblIndstrytyNm"`
	DetailURL  string `json:"bidNtceUrl"`
	Status     string `json:"bidNtceSttusNm"`
	Division   string `json:"bsnsDivNm"`
	EstPrice   string `json:"presmptPrce,omitempty"`
	Pinned     bool   `json:"isPinned"`
}

// Key returns the compound key used for dedup and upsert conflict targets.
func (b BidNotice) Key() string {
	return b.NoticeNo + "-" + b.NoticeOrd
}

// NoticeDate returns the YYYY-MM-DD part of NoticeDt, or "" if it is too short.
func (b BidNotice) NoticeDate() string {
	if len(b.NoticeDt) < 8 {
		return ""
	}
	return b.NoticeDt[0:4] + "-" + b.NoticeDt[4:6] + "-" + b.NoticeDt[6:8]
}

// SyncRun records one execution of the synchronization engine.
type SyncRun struct {
	RunID       string     `json:"run_id"`
	Mode        string     `json:"mode"` // "incremental", "full_reset", "scheduled"
	Status      string     `json:"status"`
	Scanned     int        `json:"scanned"`
	Saved       int        `json:"saved"`
	ErrorText   string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

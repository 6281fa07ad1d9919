package models

import (
	"bytes"
	"time"
)

// Kind is the closed set of content kinds a fetch can produce.
type Kind string

const (
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
	KindNone Kind = "none"
)

// Tier names one strategy in the escalation chain.
type Tier string

const (
	TierDirect  Tier = "direct"
	TierBrowser Tier = "browser"
)

// Result is the output of one fetch. It is consumed immediately by extraction.
type Result struct {
	URL         string        `json:"url"`
	Raw         []byte        `json:"-"`
	Kind        Kind          `json:"kind"`
	ContentType string        `json:"content_type"`
	Status      int           `json:"status"`
	Truncated   bool          `json:"truncated"`
	Tiers       []Tier        `json:"attempted_tiers"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Usable reports whether the result carries content worth extracting.
func (r Result) Usable() bool {
	return r.Kind != KindNone && len(bytes.TrimSpace(r.Raw)) > 0
}

package model

import (
	"time"
	"unicode/utf8"
)

// SourceType tags where a piece of evidence came from.
type SourceType string

const (
	SourceHomepage   SourceType = "HOMEPAGE"
	SourceCareers    SourceType = "CAREERS"
	SourceNews       SourceType = "NEWS"
	SourceBlog       SourceType = "BLOG"
	SourceDoc        SourceType = "DOC"
	SourceTechDetect SourceType = "TECH_DETECT"
	SourceOther      SourceType = "OTHER"
)

// IsValid reports whether s is a known source type.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceHomepage, SourceCareers, SourceNews, SourceBlog, SourceDoc, SourceTechDetect, SourceOther:
		return true
	}
	return false
}

// ExtractMethod records which fetch strategy produced an excerpt.
type ExtractMethod string

const (
	ExtractDirect        ExtractMethod = "direct"
	ExtractProxyFallback ExtractMethod = "proxy-fallback"
)

// Reliability grades confidence in an evidence item's extraction quality.
type Reliability string

const (
	ReliabilityHigh Reliability = "HIGH"
	ReliabilityMed  Reliability = "MED"
	ReliabilityLow  Reliability = "LOW"
)

// Extraction limits.
const (
	// MaxExcerptRunes bounds the excerpt stored on an evidence item.
	MaxExcerptRunes = 5000
	// FetchFailedExcerpt marks an item whose fetch failed on every strategy.
	FetchFailedExcerpt = "Failed to fetch"
)

// EvidenceItem is one retrieved source. Collection creates it without an
// excerpt; extraction fills the excerpt exactly once.
type EvidenceItem struct {
	EvidenceID    string        `json:"evidence_id"`
	Domain        string        `json:"domain"`
	SourceType    SourceType    `json:"source_type"`
	URL           string        `json:"url"`
	ResolvedURL   string        `json:"resolved_url,omitempty"`
	RetrievedAt   time.Time     `json:"retrieved_at"`
	ExtractMethod ExtractMethod `json:"extract_method,omitempty"`
	Excerpt       *string       `json:"excerpt,omitempty"`
	Reliability   Reliability   `json:"reliability"`
}

// HasExcerpt reports whether extraction produced any excerpt, including the failure sentinel.
func (e EvidenceItem) HasExcerpt() bool {
	return e.Excerpt != nil && *e.Excerpt != ""
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

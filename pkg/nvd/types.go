// Package nvd enriches dependency records with known vulnerabilities from
// the NVD CVE API 2.0.
//
// Lookups run through a [Session], which owns the adaptive request pacing
// the API's public tier requires and an in-process cache so each distinct
// (ecosystem, name, version) is queried at most once per run.
package nvd

import (
	"github.com/disruptiq/depscan/pkg/record"
)

// Severity is the bucketed CVSS rating of a CVE.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
	SeverityUnknown  Severity = "UNKNOWN"
)

// CVE is one vulnerability as reported by the NVD.
type CVE struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Severity     Severity `json:"severity"`
	Score        float64  `json:"score"`
	References   []string `json:"references,omitempty"`
	Published    string   `json:"published,omitempty"`
	LastModified string   `json:"last_modified,omitempty"`
}

// Finding ties vulnerabilities to the dependency record that matched them.
type Finding struct {
	Record record.Record `json:"record"`
	CVEs   []CVE         `json:"cves"`
}

// apiResponse mirrors the slice of the CVE API 2.0 response we consume.
type apiResponse struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE apiCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type apiCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV31 []cvssMetric `json:"cvssMetricV31"`
		CVSSMetricV30 []cvssMetric `json:"cvssMetricV30"`
		CVSSMetricV2  []cvssMetric `json:"cvssMetricV2"`
	} `json:"metrics"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

type cvssMetric struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// toCVE flattens the API shape into the exported type. The English
// description is preferred; any description serves as a fallback.
func (c apiCVE) toCVE() CVE {
	out := CVE{
		ID:           c.ID,
		Published:    c.Published,
		LastModified: c.LastModified,
		Severity:     SeverityUnknown,
	}
	for _, d := range c.Descriptions {
		if d.Lang == "en" {
			out.Description = d.Value
			break
		}
	}
	if out.Description == "" && len(c.Descriptions) > 0 {
		out.Description = c.Descriptions[0].Value
	}
	for _, ref := range c.References {
		if ref.URL != "" {
			out.References = append(out.References, ref.URL)
		}
	}
	if score, ok := c.baseScore(); ok {
		out.Score = score
		out.Severity = bucketScore(score)
	}
	return out
}

// baseScore returns the first base score by metric version preference:
// CVSS 3.1, then 3.0, then 2.
func (c apiCVE) baseScore() (float64, bool) {
	for _, metrics := range [][]cvssMetric{
		c.Metrics.CVSSMetricV31,
		c.Metrics.CVSSMetricV30,
		c.Metrics.CVSSMetricV2,
	} {
		if len(metrics) > 0 {
			return metrics[0].CVSSData.BaseScore, true
		}
	}
	return 0, false
}

// bucketScore maps a CVSS base score to its qualitative rating.
func bucketScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score >= 0.1:
		return SeverityLow
	default:
		return SeverityNone
	}
}

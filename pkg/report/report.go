// Package report assembles and persists the scan summary document.
package report

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/nvd"
	"github.com/disruptiq/depscan/pkg/record"
)

// Report is the top-level scan result document.
type Report struct {
	Repo        string          `json:"repo"`
	Commit      string          `json:"commit"`
	GeneratedAt string          `json:"generated_at"`
	Counts      Counts          `json:"counts"`
	Records     []record.Record `json:"records"`
	Findings    []nvd.Finding   `json:"findings,omitempty"`
	Signals     []Signal        `json:"signals,omitempty"`
}

// Counts summarizes the scan volume.
type Counts struct {
	Manifests    int                      `json:"manifests"`
	Dependencies int                      `json:"dependencies"`
	PerEcosystem map[record.Ecosystem]int `json:"per_ecosystem"`
	Findings     int                      `json:"findings"`
	PerSeverity  map[nvd.Severity]int     `json:"per_severity,omitempty"`
}

// Signal is an opaque risk observation attached to the report by an
// Analyzer. The scanner itself never interprets signals; it only carries
// them.
type Signal struct {
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Detail  string            `json:"detail,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Analyzer derives risk signals from a completed scan. Implementations live
// outside this module; the report only provides the attachment point.
type Analyzer interface {
	Analyze(ctx context.Context, report *Report) ([]Signal, error)
}

// Build assembles a report from scan output.
func Build(repo, commit string, manifests int, records []record.Record, findings []nvd.Finding) *Report {
	counts := Counts{
		Manifests:    manifests,
		Dependencies: len(records),
		PerEcosystem: map[record.Ecosystem]int{},
		Findings:     len(findings),
	}
	for _, rec := range records {
		counts.PerEcosystem[rec.Ecosystem]++
	}
	if len(findings) > 0 {
		counts.PerSeverity = map[nvd.Severity]int{}
		for _, f := range findings {
			for _, cve := range f.CVEs {
				counts.PerSeverity[cve.Severity]++
			}
		}
	}
	return &Report{
		Repo:        repo,
		Commit:      commit,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Counts:      counts,
		Records:     records,
		Findings:    findings,
	}
}

// Save writes the report as indented JSON. Unlike parse failures, a save
// failure is fatal to the run, so the error is returned for the CLI to
// surface.
func Save(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding report")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, err, "writing report to %s", path)
	}
	return nil
}

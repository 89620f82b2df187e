package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/disruptiq/depscan/pkg/nvd"
	"github.com/disruptiq/depscan/pkg/record"
	"github.com/disruptiq/depscan/pkg/report"
)

var (
	colorCyan   = lipgloss.Color("36")  // primary values
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings / medium severity
	colorRed    = lipgloss.Color("167") // high and critical severity
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleLabel   = lipgloss.NewStyle().Foreground(colorGray)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleDanger  = lipgloss.NewStyle().Foreground(colorRed)
)

// severityStyle picks the display style for a severity bucket.
func severityStyle(s nvd.Severity) lipgloss.Style {
	switch s {
	case nvd.SeverityCritical, nvd.SeverityHigh:
		return styleDanger
	case nvd.SeverityMedium:
		return styleWarning
	case nvd.SeverityLow:
		return styleSuccess
	default:
		return styleDim
	}
}

// severityOrder fixes the display order of severity buckets.
var severityOrder = []nvd.Severity{
	nvd.SeverityCritical,
	nvd.SeverityHigh,
	nvd.SeverityMedium,
	nvd.SeverityLow,
	nvd.SeverityNone,
	nvd.SeverityUnknown,
}

// printSummary renders the human-readable scan summary.
func printSummary(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, styleTitle.Render("Scan summary"))
	fmt.Fprintf(w, "  %s %s\n", styleLabel.Render("repo:"), r.Repo)
	fmt.Fprintf(w, "  %s %s\n", styleLabel.Render("commit:"), r.Commit)
	fmt.Fprintf(w, "  %s %s manifests, %s dependencies\n",
		styleLabel.Render("scanned:"),
		styleNumber.Render(fmt.Sprint(r.Counts.Manifests)),
		styleNumber.Render(fmt.Sprint(r.Counts.Dependencies)))

	ecosystems := make([]record.Ecosystem, 0, len(r.Counts.PerEcosystem))
	for eco := range r.Counts.PerEcosystem {
		ecosystems = append(ecosystems, eco)
	}
	sort.Slice(ecosystems, func(i, j int) bool { return ecosystems[i] < ecosystems[j] })
	for _, eco := range ecosystems {
		fmt.Fprintf(w, "    %s %s\n",
			styleDim.Render(string(eco)+":"),
			styleNumber.Render(fmt.Sprint(r.Counts.PerEcosystem[eco])))
	}

	if r.Counts.Findings == 0 {
		fmt.Fprintf(w, "  %s\n", styleSuccess.Render("no known vulnerabilities found"))
		return
	}
	fmt.Fprintf(w, "  %s %s dependencies with known CVEs\n",
		styleLabel.Render("findings:"),
		styleDanger.Render(fmt.Sprint(r.Counts.Findings)))
	for _, sev := range severityOrder {
		if n := r.Counts.PerSeverity[sev]; n > 0 {
			fmt.Fprintf(w, "    %s %d\n", severityStyle(sev).Render(string(sev)+":"), n)
		}
	}
}

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/disruptiq/depscan/pkg/nvd"
	"github.com/disruptiq/depscan/pkg/record"
	"github.com/disruptiq/depscan/pkg/report"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2026-01-01")

	if version != "1.0.0" {
		t.Errorf("version = %q", version)
	}
	if commit != "abc123" {
		t.Errorf("commit = %q", commit)
	}
	if date != "2026-01-01" {
		t.Errorf("date = %q", date)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
		{"info at error level", log.ErrorLevel, func(l *log.Logger) { l.Info("test") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestLoggerContextRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), logger)

	if got := loggerFromContext(ctx); got != logger {
		t.Error("context should return the attached logger")
	}
	if got := loggerFromContext(context.Background()); got == nil {
		t.Error("bare context should fall back to the default logger")
	}
}

func TestPrintSummary(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	records := []record.Record{
		{Ecosystem: record.EcosystemNPM, Dependency: record.Dependency{Name: "express", Version: "4.18.2"}},
		{Ecosystem: record.EcosystemPython, Dependency: record.Dependency{Name: "flask", Version: "2.0.1"}},
	}
	findings := []nvd.Finding{
		{CVEs: []nvd.CVE{{ID: "CVE-1", Severity: nvd.SeverityHigh}}},
	}
	r := report.Build("myrepo", "abc1234", 2, records, findings)

	var buf bytes.Buffer
	printSummary(&buf, r)
	out := buf.String()

	for _, want := range []string{"myrepo", "abc1234", "npm", "python", "HIGH"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummaryNoFindings(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	r := report.Build("myrepo", "unknown", 0, nil, nil)
	var buf bytes.Buffer
	printSummary(&buf, r)
	if !strings.Contains(buf.String(), "no known vulnerabilities") {
		t.Errorf("summary = %q", buf.String())
	}
}

package nvd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/record"
)

const sampleResponse = `{
  "totalResults": 1,
  "vulnerabilities": [
    {
      "cve": {
        "id": "CVE-2023-12345",
        "published": "2023-06-01T00:00:00.000",
        "lastModified": "2023-07-01T00:00:00.000",
        "descriptions": [
          {"lang": "es", "value": "descripcion"},
          {"lang": "en", "value": "A crafted payload allows remote code execution."}
        ],
        "metrics": {
          "cvssMetricV31": [{"cvssData": {"baseScore": 9.8}}]
        },
        "references": [{"url": "https://example.com/advisory"}]
      }
    }
  ]
}`

func testRecord(name, version string) record.Record {
	return record.Record{
		Ecosystem:  record.EcosystemPython,
		Dependency: record.Dependency{Name: name, Version: version},
	}
}

func newTestSession(t *testing.T, handler http.HandlerFunc) (*Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	session := NewSession(
		NewClient(WithBaseURL(server.URL)),
		WithSessionLogger(log.New(io.Discard)),
		withClock(time.Now, func(context.Context, time.Duration) {}),
	)
	return session, server
}

func TestClientSearch(t *testing.T) {
	var gotQuery string
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("keywordSearch")
		if r.URL.Query().Get("resultsPerPage") != "5" {
			t.Errorf("resultsPerPage = %q", r.URL.Query().Get("resultsPerPage"))
		}
		fmt.Fprint(w, sampleResponse)
	})

	cves := session.Lookup(context.Background(), testRecord("flask", "2.0.1"))
	if gotQuery != "flask 2.0.1" {
		t.Errorf("keyword = %q", gotQuery)
	}
	if len(cves) != 1 {
		t.Fatalf("expected 1 CVE, got %d", len(cves))
	}
	cve := cves[0]
	if cve.ID != "CVE-2023-12345" || cve.Severity != SeverityCritical || cve.Score != 9.8 {
		t.Errorf("cve = %+v", cve)
	}
	if cve.Description != "A crafted payload allows remote code execution." {
		t.Errorf("description should prefer English, got %q", cve.Description)
	}
	if len(cve.References) != 1 {
		t.Errorf("references = %v", cve.References)
	}
}

func TestSearchKeywordUnconstrained(t *testing.T) {
	if kw := searchKeyword(testRecord("flask", record.VersionAny)); kw != "flask" {
		t.Errorf("unconstrained keyword = %q", kw)
	}
}

func TestSessionCachesResults(t *testing.T) {
	hits := 0
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"totalResults": 0, "vulnerabilities": []}`)
	})

	rec := testRecord("flask", "2.0.1")
	session.Lookup(context.Background(), rec)
	session.Lookup(context.Background(), rec)
	if hits != 1 {
		t.Errorf("identical lookups should hit the API once, got %d", hits)
	}

	// A queried-empty result is cached, not re-queried.
	if _, ok := session.cache[rec.Key()]; !ok {
		t.Error("empty result missing from cache")
	}
}

func TestSessionCachesFailures(t *testing.T) {
	hits := 0
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := testRecord("flask", "2.0.1")
	if cves := session.Lookup(context.Background(), rec); cves != nil {
		t.Errorf("failed lookup should yield nil, got %v", cves)
	}
	session.Lookup(context.Background(), rec)
	if hits != 1 {
		t.Errorf("failed lookup should be cached as empty, got %d hits", hits)
	}
}

func TestSessionRateLimitRetry(t *testing.T) {
	hits := 0
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleResponse)
	})

	cves := session.Lookup(context.Background(), testRecord("flask", "2.0.1"))
	if hits != 2 {
		t.Fatalf("expected exactly one retry, got %d hits", hits)
	}
	if len(cves) != 1 {
		t.Errorf("retry result lost: %v", cves)
	}
}

func TestSessionDelayAdaptation(t *testing.T) {
	status := http.StatusTooManyRequests
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, `{"totalResults": 0, "vulnerabilities": []}`)
		}
	})

	// Repeated throttling doubles the shared delay up to the cap.
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, expected := range want {
		session.Lookup(context.Background(), testRecord("pkg", fmt.Sprint(i)))
		if session.delay != expected {
			t.Fatalf("after %d throttled lookups delay = %s, want %s", i+1, session.delay, expected)
		}
	}

	// Successes halve it back down, never below the floor.
	status = http.StatusOK
	downs := []time.Duration{5 * time.Second, 2500 * time.Millisecond, 1250 * time.Millisecond, time.Second, time.Second}
	for i, expected := range downs {
		session.Lookup(context.Background(), testRecord("ok", fmt.Sprint(i)))
		if session.delay != expected {
			t.Fatalf("after %d successes delay = %s, want %s", i+1, session.delay, expected)
		}
	}
}

func TestSessionPaceWaitsMinimumDelay(t *testing.T) {
	clock := time.Unix(1000, 0)
	var slept []time.Duration
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalResults": 0, "vulnerabilities": []}`)
	})
	session.now = func() time.Time { return clock }
	session.sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
		clock = clock.Add(d)
	}

	session.Lookup(context.Background(), testRecord("a", "1"))
	if len(slept) != 0 {
		t.Fatalf("first request should not wait, slept %v", slept)
	}

	// 400ms have passed since the previous request; the session must sleep
	// the remaining 600ms of the 1s minimum.
	clock = clock.Add(400 * time.Millisecond)
	session.Lookup(context.Background(), testRecord("b", "1"))
	if len(slept) != 1 || slept[0] != 600*time.Millisecond {
		t.Fatalf("slept %v, want [600ms]", slept)
	}
}

func TestEnrichStopsOnCancellation(t *testing.T) {
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleResponse)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := session.Enrich(ctx, []record.Record{testRecord("a", "1")}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestBucketScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{9.8, SeverityCritical},
		{9.0, SeverityCritical},
		{7.5, SeverityHigh},
		{4.0, SeverityMedium},
		{0.1, SeverityLow},
		{0.0, SeverityNone},
	}
	for _, tt := range tests {
		if got := bucketScore(tt.score); got != tt.want {
			t.Errorf("bucketScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClientRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(WithBaseURL(server.URL)).Search(context.Background(), "flask")
	if !errors.IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var rle *errors.RateLimitedError
	if !stderrors.As(err, &rle) || rle.RetryAfter != 7 {
		t.Errorf("retry-after = %+v", rle)
	}
}

func TestClientTimeoutError(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	c := NewClient(WithBaseURL(srv.URL))
	c.http.Timeout = 50 * time.Millisecond

	_, err := c.Search(context.Background(), "flask 2.0.1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if errors.GetCode(err) != errors.ErrCodeTimeout {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeTimeout)
	}
}

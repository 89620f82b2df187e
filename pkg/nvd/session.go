package nvd

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/record"
)

const (
	minDelay = 1 * time.Second
	maxDelay = 10 * time.Second
)

// Session paces requests against the NVD's public rate limits and caches
// results for the lifetime of one scan.
//
// Pacing is adaptive: every request waits until at least the current delay
// has elapsed since the previous one. A 429 doubles the delay (capped at
// maxDelay) and the query is retried exactly once; a successful response
// halves the delay back down (floored at minDelay). The delay is shared
// across all lookups in the session, so one throttled query slows every
// subsequent one.
//
// The cache distinguishes "never queried" from "queried, no results": a
// query that failed twice is cached as empty so it is not retried within
// the run.
type Session struct {
	client *Client
	logger *log.Logger

	delay time.Duration
	last  time.Time
	cache map[string][]CVE

	// Injected for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger for throttling and failure diagnostics.
func WithSessionLogger(logger *log.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// withClock replaces the time source and sleeper. Test hook.
func withClock(now func() time.Time, sleep func(context.Context, time.Duration)) SessionOption {
	return func(s *Session) {
		s.now = now
		s.sleep = sleep
	}
}

// NewSession creates a Session around the given client.
func NewSession(client *Client, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		logger: log.Default(),
		delay:  minDelay,
		cache:  make(map[string][]CVE),
		now:    time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich looks up every distinct (ecosystem, name, version) among the
// records and returns one finding per record that matched at least one CVE.
// Lookup failures are contained; cancellation stops between lookups.
func (s *Session) Enrich(ctx context.Context, records []record.Record) ([]Finding, error) {
	var findings []Finding
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		cves := s.Lookup(ctx, rec)
		if len(cves) > 0 {
			findings = append(findings, Finding{Record: rec, CVEs: cves})
		}
	}
	return findings, nil
}

// Lookup returns the CVEs matching one record, consulting the cache first.
// Failures are logged and cached as empty so the query is not repeated.
func (s *Session) Lookup(ctx context.Context, rec record.Record) []CVE {
	key := rec.Key()
	if cves, ok := s.cache[key]; ok {
		return cves
	}

	cves, err := s.query(ctx, searchKeyword(rec))
	if err != nil {
		s.logger.Warnf("CVE lookup failed for %s: %v", key, err)
		cves = nil
	}
	s.cache[key] = cves
	return cves
}

// query runs one paced search, retrying once after a rate-limit response.
func (s *Session) query(ctx context.Context, keyword string) ([]CVE, error) {
	s.pace(ctx)
	cves, err := s.client.Search(ctx, keyword)
	if errors.IsRateLimited(err) {
		s.delay = min(s.delay*2, maxDelay)
		s.logger.Debugf("NVD rate limited, delay now %s", s.delay)
		s.sleep(ctx, s.delay)
		s.last = s.now()
		cves, err = s.client.Search(ctx, keyword)
	}
	if err != nil {
		return nil, err
	}
	s.delay = max(s.delay/2, minDelay)
	return cves, nil
}

// pace blocks until the session delay has elapsed since the last request.
func (s *Session) pace(ctx context.Context) {
	if !s.last.IsZero() {
		if wait := s.delay - s.now().Sub(s.last); wait > 0 {
			s.sleep(ctx, wait)
		}
	}
	s.last = s.now()
}

// searchKeyword builds the NVD keyword query for a record. Unconstrained
// versions search by name alone.
func searchKeyword(rec record.Record) string {
	if rec.Dependency.Version == record.VersionAny {
		return rec.Dependency.Name
	}
	return rec.Dependency.Name + " " + rec.Dependency.Version
}

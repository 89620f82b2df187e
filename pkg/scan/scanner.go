// Package scan orchestrates a full repository scan: manifest discovery,
// parser dispatch and per-manifest record accumulation.
package scan

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/parsers/docker"
	"github.com/disruptiq/depscan/pkg/parsers/dotnet"
	"github.com/disruptiq/depscan/pkg/parsers/gitmodules"
	"github.com/disruptiq/depscan/pkg/parsers/golang"
	"github.com/disruptiq/depscan/pkg/parsers/java"
	"github.com/disruptiq/depscan/pkg/parsers/javascript"
	"github.com/disruptiq/depscan/pkg/parsers/makefile"
	"github.com/disruptiq/depscan/pkg/parsers/php"
	"github.com/disruptiq/depscan/pkg/parsers/pipelines"
	"github.com/disruptiq/depscan/pkg/parsers/python"
	"github.com/disruptiq/depscan/pkg/parsers/rlang"
	"github.com/disruptiq/depscan/pkg/parsers/ruby"
	"github.com/disruptiq/depscan/pkg/parsers/rust"
	"github.com/disruptiq/depscan/pkg/parsers/swift"
	"github.com/disruptiq/depscan/pkg/record"
	"github.com/disruptiq/depscan/pkg/walker"
)

const gitHashTimeout = 5 * time.Second

// defaultParsers returns the normalizer set in routing order. The order
// mirrors the ecosystem pattern table used during discovery so that routing
// ties resolve the same way in both phases.
func defaultParsers() []parsers.Parser {
	return []parsers.Parser{
		&javascript.PackageJSON{},
		&javascript.Lockfiles{},
		&python.Requirements{},
		&python.PyProject{},
		&python.Pipfile{},
		&python.PipfileLock{},
		&python.SetupPy{},
		&golang.GoMod{},
		&rust.CargoToml{},
		&rust.CargoLock{},
		&java.POM{},
		&ruby.Gemfile{},
		&ruby.GemfileLock{},
		&php.Composer{},
		&php.ComposerLock{},
		&dotnet.Csproj{},
		&dotnet.PackagesLock{},
		&pipelines.Compose{},
		&pipelines.GitHubWorkflow{},
		&pipelines.GitLabCI{},
		&docker.Dockerfile{},
		&gitmodules.GitModules{},
		&swift.PackageSwift{},
		&rlang.Description{},
		&makefile.Makefile{},
	}
}

// Scanner runs discovery and normalization over one repository root.
type Scanner struct {
	root     string
	ignore   []string
	registry *parsers.Registry
	logger   *log.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithIgnorePatterns adds patterns to the default ignore set used by the
// fallback traversal.
func WithIgnorePatterns(patterns []string) Option {
	return func(s *Scanner) { s.ignore = patterns }
}

// WithRegistry replaces the default normalizer registry.
func WithRegistry(r *parsers.Registry) Option {
	return func(s *Scanner) { s.registry = r }
}

// WithLogger sets the logger used for progress and contained failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// New creates a Scanner for the given repository root.
func New(root string, opts ...Option) *Scanner {
	s := &Scanner{
		root:   root,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = parsers.NewRegistry(s.logger.Warnf, s.logger.Infof, defaultParsers()...)
	}
	return s
}

// Result is the outcome of one scan.
type Result struct {
	Root       string
	CommitHash string
	Manifests  []string
	Records    []record.Record
}

// Scan discovers manifests under the root and dispatches each one to its
// normalizer. Per-manifest failures are contained by the registry; only an
// invalid root or cancellation aborts the scan. Cancellation is observed at
// manifest boundaries, so a currently-parsing file finishes first.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	w := walker.New(s.root,
		walker.WithIgnorePatterns(s.ignore),
		walker.WithLogger(s.logger.Warnf),
	)
	manifests, err := w.Walk(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debugf("discovered %d manifest candidates", len(manifests))

	result := &Result{
		Root:       s.root,
		CommitHash: CommitHash(ctx, s.root),
		Manifests:  manifests,
	}
	for _, manifest := range manifests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records := s.registry.Dispatch(s.root, manifest)
		s.logger.Debugf("%s: %d dependencies", manifest, len(records))
		result.Records = append(result.Records, records...)
	}
	return result, nil
}

// CommitHash returns the short HEAD hash of the repository at root, or
// "unknown" when the root is not a git repository or git is unavailable.
func CommitHash(ctx context.Context, root string) string {
	ctx, cancel := context.WithTimeout(ctx, gitHashTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	hash := strings.TrimSpace(string(out))
	if hash == "" {
		return "unknown"
	}
	return hash
}

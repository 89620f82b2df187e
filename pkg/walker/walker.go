// Package walker discovers candidate manifest files in a repository.
//
// Discovery uses two traversal strategies, selected automatically. When the
// root is a git repository, a single bounded `git ls-files` query lists the
// tracked files; this implicitly honors the repository's ignore rules and
// never descends into vendored trees. Otherwise (or whenever the bulk query
// fails or times out) the walker falls back to a recursive traversal that
// prunes ignored subtrees before descending into them.
//
// The result is the lexicographically sorted, deduplicated set of relative
// paths matching any ecosystem signature.
package walker

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disruptiq/depscan/pkg/errors"
)

const gitListTimeout = 30 * time.Second

// Walker traverses a repository root and classifies manifest candidates.
type Walker struct {
	root   string
	ignore []string
	logger func(string, ...any)
}

// Option configures a Walker.
type Option func(*Walker)

// WithIgnorePatterns adds patterns to the default ignore set used by the
// fallback traversal. Patterns use gitignore-style syntax.
func WithIgnorePatterns(patterns []string) Option {
	return func(w *Walker) {
		w.ignore = append(w.ignore, patterns...)
	}
}

// WithLogger sets the warning callback used for non-fatal traversal issues.
func WithLogger(logger func(string, ...any)) Option {
	return func(w *Walker) { w.logger = logger }
}

// New creates a Walker for the given repository root.
func New(root string, opts ...Option) *Walker {
	w := &Walker{
		root:   root,
		ignore: defaultIgnorePatterns,
		logger: func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk returns the sorted, deduplicated relative paths of all manifest
// candidates under the root. It fails only when the root is missing or is
// not a directory; traversal problems inside the tree are contained.
func (w *Walker) Walk(ctx context.Context) ([]string, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "scan root %s", w.root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "scan root is not a directory: %s", w.root)
	}

	found := make(map[string]struct{})

	if tracked, ok := w.gitTrackedFiles(ctx); ok {
		for _, rel := range tracked {
			w.classify(rel, found)
		}
	} else if err := w.walkTree(ctx, found); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(found))
	for p := range found {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// classify records rel if it matches the pattern table or the independent
// container-build rule. The map keying makes double additions harmless.
func (w *Walker) classify(rel string, found map[string]struct{}) {
	if matchesManifest(rel) {
		found[rel] = struct{}{}
	}
	if isDockerfileName(path.Base(rel)) {
		found[rel] = struct{}{}
	}
}

// gitTrackedFiles lists tracked files with one bulk git query. Any failure
// (no git binary, not a repository, timeout) selects the fallback traversal;
// the condition is never surfaced to the caller.
func (w *Walker) gitTrackedFiles(ctx context.Context) ([]string, bool) {
	if _, err := os.Stat(filepath.Join(w.root, ".git")); err != nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, gitListTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files")
	cmd.Dir = w.root
	out, err := cmd.Output()
	if err != nil {
		w.logger("git ls-files unavailable, walking the tree: %v", err)
		return nil, false
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, true
}

// walkTree is the fallback traversal. Ignored subtrees are pruned before
// recursion so large dependency caches are never entered.
func (w *Walker) walkTree(ctx context.Context, found map[string]struct{}) error {
	matcher := newIgnoreMatcher(w.root, w.ignore)

	return filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger("skipping %s: %v", p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(w.root, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.Match(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(rel) {
			return nil
		}
		w.classify(rel, found)
		return nil
	})
}

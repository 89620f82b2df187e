package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns prune well-known dependency caches and build output.
// Pruning these before descent is required for correctness on large trees,
// not just a speedup: a node_modules tree can hold thousands of package.json
// files that are not the repository's own declarations.
var defaultIgnorePatterns = []string{
	"node_modules/",
	"vendor/",
	".git/",
	"__pycache__/",
	"*.log",
	"dist/",
	"build/",
	".venv/",
	"venv/",
}

// ignoreMatcher applies gitignore-style patterns to slash-separated relative
// paths. It supports the subset of gitwildmatch the scanner needs: directory
// patterns ("dir/"), anchored patterns ("/dir"), bare names matched at any
// depth, simple "*" wildcards, and "!" negations.
type ignoreMatcher struct {
	patterns []string
	negated  []string
}

// newIgnoreMatcher combines the explicit ignore list with the repository's
// own .gitignore, if one exists at root.
func newIgnoreMatcher(root string, extra []string) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, p := range extra {
		m.add(p)
	}
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return m
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.add(line)
	}
	return m
}

func (m *ignoreMatcher) add(pattern string) {
	if rest, ok := strings.CutPrefix(pattern, "!"); ok {
		m.negated = append(m.negated, rest)
		return
	}
	m.patterns = append(m.patterns, pattern)
}

// Match reports whether relPath should be ignored. Directories must be passed
// with a trailing slash so that "dir/" patterns apply to them.
func (m *ignoreMatcher) Match(relPath string) bool {
	relPath = strings.TrimSuffix(relPath, "/")
	ignored := false
	for _, p := range m.patterns {
		if matchIgnorePattern(p, relPath) {
			ignored = true
			break
		}
	}
	if !ignored {
		return false
	}
	for _, p := range m.negated {
		if matchIgnorePattern(p, relPath) {
			return false
		}
	}
	return true
}

func matchIgnorePattern(pattern, relPath string) bool {
	// Directory pattern: matches the directory itself and anything below it,
	// at any depth.
	if dir, ok := strings.CutSuffix(pattern, "/"); ok {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
		for _, part := range strings.Split(relPath, "/") {
			if part == dir {
				return true
			}
		}
		return false
	}

	// Anchored pattern: relative to the root only.
	if rest, ok := strings.CutPrefix(pattern, "/"); ok {
		return matchToken(rest, relPath)
	}

	if matchToken(pattern, relPath) {
		return true
	}

	// Unanchored patterns match any path component or trailing subpath.
	parts := strings.Split(relPath, "/")
	for i := range parts {
		if matchToken(pattern, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	if !strings.Contains(pattern, "/") {
		for _, part := range parts {
			if matchToken(pattern, part) {
				return true
			}
		}
	}
	return false
}

// matchToken handles literal equality and basic "*" wildcards.
func matchToken(pattern, text string) bool {
	if pattern == text {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(text, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(text, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(text, pattern[:len(pattern)-1])
	}
	return false
}

// Package parsers routes classified manifest paths to format-specific
// normalizers and isolates per-file failures.
//
// Each normalizer implements [Parser]: it recognizes filenames via Supports
// and converts one manifest grammar into canonical dependency records.
// Routing is first-match-wins over an ordered registry, mirroring how the
// ecosystem pattern table breaks ties during discovery.
//
// A malformed manifest must never prevent the remaining manifests from being
// processed: [Registry.Dispatch] converts every parser error, and even a
// panic, into a warning plus an empty record set.
package parsers

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/record"
)

// Parser converts one ecosystem-specific manifest grammar into canonical
// records.
type Parser interface {
	// Supports reports whether this parser handles the given relative path.
	// Most parsers key on the basename; a few (CI workflows) inspect the path.
	Supports(relPath string) bool
	// Type returns the manifest type identifier (e.g. "requirements.txt").
	Type() string
	// Parse reads the manifest at root/relPath and returns its records.
	// Recoverable conditions (missing file, bad encoding, malformed content)
	// are returned as errors and contained by the dispatcher.
	Parse(root, relPath string) ([]record.Record, error)
}

// Registry holds an ordered list of parsers.
type Registry struct {
	parsers []Parser
	warnf   func(string, ...any)
	infof   func(string, ...any)
}

// NewRegistry creates a registry with the given parsers in routing order.
// warnf receives contained failures; infof receives informational routing
// outcomes. Pass nil for either to discard its messages.
func NewRegistry(warnf, infof func(string, ...any), parsers ...Parser) *Registry {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	if infof == nil {
		infof = func(string, ...any) {}
	}
	return &Registry{parsers: parsers, warnf: warnf, infof: infof}
}

// Route returns the first parser that supports relPath, or nil when no
// normalizer is available. A nil result is informational, not an error.
func (r *Registry) Route(relPath string) Parser {
	for _, p := range r.parsers {
		if p.Supports(relPath) {
			return p
		}
	}
	return nil
}

// Dispatch routes relPath and runs the matching parser. All failures are
// contained: parse errors and panics are logged with the offending path and
// yield zero records, so one bad manifest never aborts the run. A path with
// no matching normalizer is an informational outcome, not a failure.
func (r *Registry) Dispatch(root, relPath string) []record.Record {
	p := r.Route(relPath)
	if p == nil {
		r.infof("no normalizer available for %s", relPath)
		return nil
	}

	records, err := r.invoke(p, root, relPath)
	if err != nil {
		r.warnf("failed to parse %s: %v", relPath, err)
		return nil
	}
	return records
}

func (r *Registry) invoke(p Parser, root, relPath string) (records []record.Record, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			records = nil
			err = errors.New(errors.ErrCodeInternal, "parser %s panicked: %v", p.Type(), rec)
		}
	}()
	return p.Parse(root, relPath)
}

// ReadManifest loads a manifest file and validates its encoding. It returns
// structured errors for the conditions the error taxonomy names: a missing
// file and non-decodable content are both recoverable.
func ReadManifest(root, relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest vanished before parsing")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "reading manifest")
	}
	if !utf8.Valid(data) {
		return nil, errors.New(errors.ErrCodeBadEncoding, "manifest contains invalid UTF-8")
	}
	return data, nil
}

// Describe summarizes routing for diagnostics: one "type: example" line per
// registered parser, in routing order.
func (r *Registry) Describe() []string {
	out := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		out = append(out, fmt.Sprintf("%T: %s", p, p.Type()))
	}
	return out
}

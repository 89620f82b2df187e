package python

import (
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// setupCallRE locates the opening of the setup(...) call.
var setupCallRE = regexp.MustCompile(`setup\s*\(`)

// dependencyFields are the setup() keywords that carry dependency lists.
// tests_require and extras_require declare development-only dependencies.
var dependencyFields = []struct {
	name string
	dev  bool
}{
	{"install_requires", false},
	{"setup_requires", false},
	{"tests_require", true},
	{"extras_require", true},
}

// SetupPy extracts dependencies from setup.py build scripts. The file is
// Python source, so the parser bounds the setup(...) argument span by
// tracking parenthesis depth character by character; a regex alone cannot
// correctly bound nested list and string literals.
type SetupPy struct{}

func (s *SetupPy) Type() string { return "setup.py" }

func (s *SetupPy) Supports(relPath string) bool {
	return baseOf(relPath) == "setup.py"
}

func (s *SetupPy) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	content := string(data)

	span := setupSpan(content)
	if span == "" {
		return nil, nil
	}

	var records []record.Record
	for _, field := range dependencyFields {
		for _, spec := range fieldValues(span, field.name) {
			spec = strings.Trim(strings.TrimSpace(spec), `'"`)
			if spec == "" || strings.HasPrefix(spec, "#") {
				continue
			}
			name, version, ok := parseSpec(spec)
			if !ok {
				continue
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemPython,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourcePyPI},
				Metadata: record.Metadata{
					DevDependency: field.dev,
					LineNumber:    lineOf(content, spec),
				},
			})
		}
	}
	return records, nil
}

// setupSpan returns the balanced-parenthesis argument span of the setup()
// call, from "setup(" through its matching close paren. Empty when the file
// has no setup call or the parens never balance.
func setupSpan(content string) string {
	loc := setupCallRE.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	depth := 0
	for i := loc[0]; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return content[loc[0] : i+1]
			}
		}
	}
	return ""
}

// fieldValues finds every assignment of the named keyword inside the setup
// span and returns the items of its list/tuple argument, or the bare string
// argument as a single item.
func fieldValues(span, field string) []string {
	re := regexp.MustCompile(field + `\s*=\s*`)
	var items []string
	for _, loc := range re.FindAllStringIndex(span, -1) {
		rest := span[loc[1]:]
		if rest == "" {
			continue
		}
		switch rest[0] {
		case '[', '(':
			items = append(items, splitItems(rest)...)
		case '\'', '"':
			quote := rest[0]
			if end := strings.IndexByte(rest[1:], quote); end >= 0 {
				items = append(items, rest[1:1+end])
			}
		}
	}
	return items
}

// splitItems tokenizes a Python list/tuple literal. Commas inside quoted
// strings or nested brackets are never treated as item separators.
func splitItems(list string) []string {
	var (
		items    []string
		current  strings.Builder
		inString bool
		strChar  byte
		depth    int
	)
	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for i := 0; i < len(list); i++ {
		ch := list[i]
		if inString {
			current.WriteByte(ch)
			if ch == strChar && (i == 0 || list[i-1] != '\\') {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inString = true
			strChar = ch
			current.WriteByte(ch)
		case '[', '(', '{':
			depth++
			if depth > 1 {
				current.WriteByte(ch)
			}
		case ']', ')', '}':
			depth--
			if depth == 0 {
				flush()
				return items
			}
			current.WriteByte(ch)
		case ',':
			if depth == 1 {
				flush()
			} else {
				current.WriteByte(ch)
			}
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return items
}

// lineOf returns the 1-based line containing target, 0 when absent.
func lineOf(content, target string) int {
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, target) {
			return i + 1
		}
	}
	return 0
}

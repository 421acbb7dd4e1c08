// Package contract implements the per-file content rule engine (component
// D): forbidden type/API/pattern checks, nesting-depth warnings, and a
// standing debug-print check, loaded from a YAML configuration the way
// internal/config loads Nexus's Config.
package contract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Severity distinguishes a blocking violation from a collected warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is a single rule hit against one line of a candidate write.
type Violation struct {
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Result is the outcome of validating one file's content.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// PatternRule is one named forbidden.patterns[] entry.
type PatternRule struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// ArchitectureConfig carries structural rules independent of any single
// forbidden token.
type ArchitectureConfig struct {
	MaxNesting int `yaml:"max_nesting"`
}

// ForbiddenConfig groups the three forbidden.* rule families.
type ForbiddenConfig struct {
	Types    []string      `yaml:"types"`
	APIs     []string      `yaml:"apis"`
	Patterns []PatternRule `yaml:"patterns"`
}

// Config is the `contract:` YAML section.
type Config struct {
	Forbidden      ForbiddenConfig    `yaml:"forbidden"`
	Architecture   ArchitectureConfig `yaml:"architecture"`
	SourceExts     []string           `yaml:"source_extensions"`
	DebugPrintSubs []string           `yaml:"debug_print_patterns"`
}

// Document is the top-level YAML shape a contract file is loaded from:
//
//	contract:
//	  forbidden: {...}
//	  architecture: {...}
type Document struct {
	Contract Config `yaml:"contract"`
}

// DefaultSourceExtensions are validated when a Config leaves
// SourceExts empty. The contract applies to whatever source tree an
// agent session is editing, not just Go, so the default list spans the
// common languages a coding agent is likely to touch.
var DefaultSourceExtensions = []string{
	".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rb", ".rs", ".java", ".kt", ".c", ".cc", ".cpp", ".h", ".hpp",
}

// DefaultDebugPrintPatterns are checked (as line substrings) regardless
// of whether the contract's own config declares any forbidden rules —
// the debug-print check is always on per spec.md §4.4.
var DefaultDebugPrintPatterns = []string{
	"console.log(", "console.debug(", "fmt.Println(", "fmt.Print(", "println!(", "dbg!(",
	"System.out.println(", "print(", "debugger;",
}

// Validator is a compiled, immutable view of a Config. A Validator is
// pure and safe to share across concurrent sessions.
type Validator struct {
	forbiddenTypes   []*regexp.Regexp
	forbiddenAPIs    []string
	patterns         []compiledPattern
	maxNesting       int
	sourceExts       map[string]bool
	debugPrintSubs   []string
}

type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// New compiles a Config into a Validator. It returns an error if any
// forbidden.types or forbidden.patterns regex fails to compile.
func New(cfg Config) (*Validator, error) {
	v := &Validator{
		forbiddenAPIs: cfg.Forbidden.APIs,
		maxNesting:    cfg.Architecture.MaxNesting,
	}

	for _, expr := range cfg.Forbidden.Types {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("contract: compiling forbidden type regex %q: %w", expr, err)
		}
		v.forbiddenTypes = append(v.forbiddenTypes, re)
	}

	for _, p := range cfg.Forbidden.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("contract: compiling forbidden pattern %q: %w", p.Name, err)
		}
		v.patterns = append(v.patterns, compiledPattern{name: p.Name, re: re})
	}

	exts := cfg.SourceExts
	if len(exts) == 0 {
		exts = DefaultSourceExtensions
	}
	v.sourceExts = make(map[string]bool, len(exts))
	for _, e := range exts {
		v.sourceExts[e] = true
	}

	v.debugPrintSubs = cfg.DebugPrintSubs
	if len(v.debugPrintSubs) == 0 {
		v.debugPrintSubs = DefaultDebugPrintPatterns
	}

	return v, nil
}

// IsSourcePath reports whether path has a source extension this
// Validator checks content rules against.
func (v *Validator) IsSourcePath(path string) bool {
	return v.sourceExts[filepath.Ext(path)]
}

// isTestPath reports whether path should skip the debug-print rule,
// per spec.md §4.4 ("paths containing .test. or .spec. skip the
// debug-print rule").
func isTestPath(path string) bool {
	return strings.Contains(path, ".test.") || strings.Contains(path, ".spec.")
}

// Validate runs content against every configured rule for path and
// returns the accumulated violations. Non-source paths are always
// valid with no violations — callers are expected to check
// IsSourcePath themselves when that distinction matters, but Validate
// is safe to call unconditionally.
func (v *Validator) Validate(content, path string) Result {
	if !v.IsSourcePath(path) {
		return Result{Valid: true}
	}

	var violations []Violation
	skipDebugPrint := isTestPath(path)
	nestDepth := 0

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lineNo := i + 1

		for _, re := range v.forbiddenTypes {
			if re.MatchString(line) {
				violations = append(violations, Violation{
					Path: path, Line: lineNo, Severity: SeverityError,
					Code:    "forbidden.types",
					Message: fmt.Sprintf("line matches forbidden type pattern %q", re.String()),
				})
			}
		}

		for _, api := range v.forbiddenAPIs {
			if strings.Contains(line, api) {
				violations = append(violations, Violation{
					Path: path, Line: lineNo, Severity: SeverityError,
					Code:    "forbidden.apis",
					Message: fmt.Sprintf("line references forbidden API %q", api),
				})
			}
		}

		for _, p := range v.patterns {
			if p.re.MatchString(line) {
				violations = append(violations, Violation{
					Path: path, Line: lineNo, Severity: SeverityError,
					Code:    "forbidden.patterns." + p.name,
					Message: fmt.Sprintf("line matches forbidden pattern %q", p.name),
				})
			}
		}

		if v.maxNesting > 0 {
			nestDepth += strings.Count(line, "{") - strings.Count(line, "}")
			if nestDepth > v.maxNesting {
				violations = append(violations, Violation{
					Path: path, Line: lineNo, Severity: SeverityWarning,
					Code:    "architecture.max_nesting",
					Message: fmt.Sprintf("nesting depth %d exceeds max_nesting %d", nestDepth, v.maxNesting),
				})
			}
		}

		if !skipDebugPrint {
			for _, sub := range v.debugPrintSubs {
				if strings.Contains(line, sub) {
					violations = append(violations, Violation{
						Path: path, Line: lineNo, Severity: SeverityWarning,
						Code:    "debug_print",
						Message: fmt.Sprintf("line contains debug-print call %q", sub),
					})
					break
				}
			}
		}
	}

	valid := true
	for _, viol := range violations {
		if viol.Severity == SeverityError {
			valid = false
			break
		}
	}

	return Result{Valid: valid, Violations: violations}
}

// File is one candidate write passed to ValidateBatch.
type File struct {
	Path    string
	Content string
}

// ValidateBatch validates each file and concatenates the results'
// violations; Valid is false if any file's content failed.
func (v *Validator) ValidateBatch(files []File) Result {
	var all []Violation
	valid := true
	for _, f := range files {
		r := v.Validate(f.Content, f.Path)
		all = append(all, r.Violations...)
		if !r.Valid {
			valid = false
		}
	}
	return Result{Valid: valid, Violations: all}
}

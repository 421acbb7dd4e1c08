package contract

import "testing"

func TestValidator_ForbiddenTypesAndAPIs(t *testing.T) {
	v, err := New(Config{
		Forbidden: ForbiddenConfig{
			Types: []string{`:\s*any\b`, `\bas any\b`},
			APIs:  []string{"eval("},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	content := "function f(x: any) {\n  eval(x)\n}\n"
	result := v.Validate(content, "app.ts")
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d: %+v", len(result.Violations), result.Violations)
	}
	if result.Violations[0].Code != "forbidden.types" || result.Violations[0].Line != 1 {
		t.Fatalf("unexpected first violation: %+v", result.Violations[0])
	}
	if result.Violations[1].Code != "forbidden.apis" || result.Violations[1].Line != 2 {
		t.Fatalf("unexpected second violation: %+v", result.Violations[1])
	}
}

func TestValidator_NamedPattern(t *testing.T) {
	v, err := New(Config{
		Forbidden: ForbiddenConfig{
			Patterns: []PatternRule{{Name: "default export", Regex: `^export default`}},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result := v.Validate("export default function App() {}\n", "app.tsx")
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if result.Violations[0].Code != "forbidden.patterns.default export" {
		t.Fatalf("unexpected code: %+v", result.Violations[0])
	}
}

func TestValidator_MaxNestingWarns(t *testing.T) {
	v, err := New(Config{Architecture: ArchitectureConfig{MaxNesting: 2}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	content := "func f() {\n  if true {\n    if true {\n      doThing()\n    }\n  }\n}\n"
	result := v.Validate(content, "f.go")
	if !result.Valid {
		t.Fatal("warnings must not invalidate the result")
	}
	found := false
	for _, viol := range result.Violations {
		if viol.Code == "architecture.max_nesting" && viol.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a max_nesting warning, got %+v", result.Violations)
	}
}

func TestValidator_DebugPrintSkipsTestFiles(t *testing.T) {
	v, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := v.Validate("console.log(x)\n", "app.js")
	if len(result.Violations) != 1 || result.Violations[0].Code != "debug_print" {
		t.Fatalf("expected a debug_print warning, got %+v", result.Violations)
	}

	result = v.Validate("console.log(x)\n", "app.test.js")
	if len(result.Violations) != 0 {
		t.Fatalf("expected debug_print skipped in test file, got %+v", result.Violations)
	}
}

func TestValidator_NonSourceExtensionAlwaysValid(t *testing.T) {
	v, err := New(Config{Forbidden: ForbiddenConfig{APIs: []string{"eval("}}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result := v.Validate("eval(x)\n", "README.md")
	if !result.Valid || len(result.Violations) != 0 {
		t.Fatalf("expected non-source path to pass untouched, got %+v", result)
	}
}

func TestValidator_ValidateBatch(t *testing.T) {
	v, err := New(Config{Forbidden: ForbiddenConfig{APIs: []string{"eval("}}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result := v.ValidateBatch([]File{
		{Path: "a.js", Content: "eval(x)\n"},
		{Path: "b.js", Content: "const y = 1\n"},
	})
	if result.Valid {
		t.Fatal("expected batch invalid due to a.js")
	}
	if len(result.Violations) != 1 {
		t.Fatalf("expected 1 violation across batch, got %d", len(result.Violations))
	}
}

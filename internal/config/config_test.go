package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/sumgen/internal/union"
)

func TestParseConfig_Valid(t *testing.T) {
	yaml := `
output: "{{snake .Union}}_gen.go"
defaults:
  switch_methods: partial
  skip_implicit_conversion_from_value: true
unions:
  - type: Shape
    package: example.com/shapes
    map_methods: none
  - type: Event
`
	cfg, err := ParseConfig([]byte(yaml), "sumgen.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Unions) != 2 {
		t.Fatalf("expected 2 unions, got %d", len(cfg.Unions))
	}
	if cfg.Unions[0].Package != "example.com/shapes" {
		t.Errorf("package = %q", cfg.Unions[0].Package)
	}
	name, err := cfg.FileName("HTTPError", "errs")
	if err != nil {
		t.Fatalf("FileName: %v", err)
	}
	if name != "http_error_gen.go" {
		t.Errorf("FileName = %q, want http_error_gen.go", name)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("unions:\n  - type: Shape\n"), "sumgen.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("output = %q, want %q", cfg.Output, DefaultOutput)
	}
	if got := cfg.Settings("example.com/shapes", "Shape", nil); got != (union.Settings{}) {
		t.Errorf("settings = %+v, want built-in defaults", got)
	}

	empty, err := ParseConfig(nil, "sumgen.yaml")
	if err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if len(empty.Unions) != 0 {
		t.Errorf("unions = %v, want none", empty.Unions)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing type", "unions:\n  - package: x\n", "sumgen.yaml: unions[0]: type is required"},
		{"bad type", "unions:\n  - type: my-union\n", "not a Go identifier"},
		{"bad method", "unions:\n  - type: Shape\n    switch_methods: sometimes\n", "unions[0] (Shape): switch_methods"},
		{"bad default", "defaults:\n  map_methods: all\n", "sumgen.yaml: defaults: map_methods"},
		{"duplicate", "unions:\n  - type: Shape\n  - type: Event\n  - type: Shape\n", "unions[2] (Shape): duplicates unions[0]"},
		{"bad template", "output: \"{{.Nope}}.go\"\n", "sumgen.yaml: output"},
		{"template with dir", "output: \"gen/{{.Union}}.go\"\n", "plain file name"},
		{"template without union", "output: \"{{.Package}}_sumgen.go\"\n", "must depend on .Union"},
		{"bad yaml", "unions: [\n", "parsing sumgen.yaml"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tt.yaml), "sumgen.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestSettings_Precedence(t *testing.T) {
	yaml := `
defaults:
  switch_methods: none
  map_methods: partial
  skip_implicit_conversion_from_value: true
unions:
  - type: Shape
    package: example.com/shapes
    map_methods: none
  - type: Shape
    switch_methods: default
`
	cfg, err := ParseConfig([]byte(yaml), "sumgen.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	partial := union.DefaultWithPartialOverloads
	no := false
	dir := &Directive{SwitchMethods: &partial, SkipImplicitConversion: &no}

	tests := []struct {
		name    string
		pkgPath string
		typ     string
		dir     *Directive
		want    union.Settings
	}{
		{
			name: "yaml defaults only",
			typ:  "Event",
			want: union.Settings{SwitchMethods: union.None, MapMethods: union.DefaultWithPartialOverloads, SkipImplicitConversionFromValue: true},
		},
		{
			name: "directive over defaults",
			typ:  "Event",
			dir:  dir,
			want: union.Settings{SwitchMethods: union.DefaultWithPartialOverloads, MapMethods: union.DefaultWithPartialOverloads},
		},
		{
			name:    "package entry over directive",
			pkgPath: "example.com/shapes",
			typ:     "Shape",
			dir:     dir,
			want:    union.Settings{SwitchMethods: union.DefaultWithPartialOverloads, MapMethods: union.None},
		},
		{
			name:    "wildcard entry elsewhere",
			pkgPath: "example.com/other",
			typ:     "Shape",
			dir:     dir,
			want:    union.Settings{SwitchMethods: union.Default, MapMethods: union.DefaultWithPartialOverloads},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cfg.Settings(tt.pkgPath, tt.typ, tt.dir); got != tt.want {
				t.Errorf("settings = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeclared(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
unions:
  - type: Shape
    package: example.com/shapes
  - type: Event
  - type: Token
    package: example.com/lexer
`), "sumgen.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cfg.Declared("example.com/shapes")
	if strings.Join(got, ",") != "Shape,Event" {
		t.Errorf("Declared = %v, want [Shape Event]", got)
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	// A sumgen.yaml above the temp dir would be found; only check that
	// nothing inside it was.
	if strings.HasPrefix(got, root) {
		t.Errorf("found %q before creating one", got)
	}

	cfgPath := filepath.Join(root, "a", "sumgen.yml")
	if err := os.WriteFile(cfgPath, []byte("unions: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != cfgPath {
		t.Errorf("FindConfig = %q, want %q", got, cfgPath)
	}

	cfg, err := LoadConfig(got)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Path() != cfgPath {
		t.Errorf("Path = %q", cfg.Path())
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	name, err := cfg.FileName("Shape", "shapes")
	if err != nil {
		t.Fatalf("FileName: %v", err)
	}
	if name != "shape_sumgen.go" {
		t.Errorf("FileName = %q, want shape_sumgen.go", name)
	}
}

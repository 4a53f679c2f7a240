// Package config loads sumgen settings.
//
// Settings come from two places:
//   - sumgen.yaml, found by walking up from the working directory
//   - //sumgen:union directives in the doc comment of a union root
//
// For one union they are layered as built-in defaults < yaml defaults <
// directive < yaml unions entry.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/sumgen/internal/union"
)

// DefaultOutput is the file name template used when sumgen.yaml sets none.
const DefaultOutput = "{{snake .Union}}_sumgen.go"

// ErrNoUnions is reported when neither sumgen.yaml nor any directive
// declares a union in the loaded packages.
var ErrNoUnions = errors.New("no unions declared")

// Config represents the top-level sumgen.yaml configuration.
type Config struct {
	// Output is the file name template for generated files. It is executed
	// with .Union (the root type name) and .Package (the package name).
	Output string `yaml:"output,omitempty"`

	// Defaults apply to every union.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// Unions declares unions without directives, or overrides the
	// settings of directive-declared ones.
	Unions []UnionSpec `yaml:"unions,omitempty"`

	path   string
	output *template.Template
}

// Defaults holds project-wide settings.
type Defaults struct {
	SwitchMethods                   string `yaml:"switch_methods,omitempty"`
	MapMethods                      string `yaml:"map_methods,omitempty"`
	SkipImplicitConversionFromValue *bool  `yaml:"skip_implicit_conversion_from_value,omitempty"`
}

// UnionSpec is one entry of the unions list.
type UnionSpec struct {
	// Type is the name of the root interface (e.g. "Shape").
	Type string `yaml:"type"`

	// Package restricts the entry to one import path. When empty the entry
	// applies to every loaded package declaring Type.
	Package string `yaml:"package,omitempty"`

	SwitchMethods                   string `yaml:"switch_methods,omitempty"`
	MapMethods                      string `yaml:"map_methods,omitempty"`
	SkipImplicitConversionFromValue *bool  `yaml:"skip_implicit_conversion_from_value,omitempty"`
}

// Default returns the configuration used when no sumgen.yaml exists.
func Default() *Config {
	cfg := &Config{path: "<default>"}
	cfg.setDefaults()
	// The default template is known to parse.
	_ = cfg.compileOutput()
	return cfg
}

// LoadConfig reads and parses a sumgen.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses sumgen.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.path = path
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for sumgen.yaml starting from dir and walking up to
// parent directories. It returns "" and a nil error when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{"sumgen.yaml", "sumgen.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Path returns the file the configuration was read from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) setDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if err := c.compileOutput(); err != nil {
		return fmt.Errorf("%s: output: %w", path, err)
	}
	if err := checkMethods(c.Defaults.SwitchMethods, c.Defaults.MapMethods); err != nil {
		return fmt.Errorf("%s: defaults: %w", path, err)
	}

	seen := make(map[string]int, len(c.Unions))
	for i, u := range c.Unions {
		if u.Type == "" {
			return fmt.Errorf("%s: unions[%d]: type is required", path, i)
		}
		if !token.IsIdentifier(u.Type) {
			return fmt.Errorf("%s: unions[%d]: type %q is not a Go identifier", path, i, u.Type)
		}
		if err := checkMethods(u.SwitchMethods, u.MapMethods); err != nil {
			return fmt.Errorf("%s: unions[%d] (%s): %w", path, i, u.Type, err)
		}
		key := u.Package + "." + u.Type
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s: unions[%d] (%s): duplicates unions[%d]", path, i, u.Type, prev)
		}
		seen[key] = i
	}
	return nil
}

func checkMethods(switchMethods, mapMethods string) error {
	if _, err := union.ParseMethodGeneration(switchMethods); err != nil {
		return fmt.Errorf("switch_methods: %w", err)
	}
	if _, err := union.ParseMethodGeneration(mapMethods); err != nil {
		return fmt.Errorf("map_methods: %w", err)
	}
	return nil
}

func (c *Config) compileOutput() error {
	tmpl, err := template.New("output").Funcs(template.FuncMap{
		"snake": Snake,
		"lower": strings.ToLower,
	}).Option("missingkey=error").Parse(c.Output)
	if err != nil {
		return err
	}
	// Execute once so unknown fields fail at load time.
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, outputData{Union: "Union", Package: "pkg"}); err != nil {
		return err
	}
	if buf.Len() == 0 || strings.ContainsAny(buf.String(), `/\`) {
		return fmt.Errorf("template %q must produce a plain file name", c.Output)
	}
	first := buf.String()
	buf.Reset()
	if err := tmpl.Execute(&buf, outputData{Union: "Other", Package: "pkg"}); err != nil {
		return err
	}
	if buf.String() == first {
		return fmt.Errorf("template %q must depend on .Union", c.Output)
	}
	c.output = tmpl
	return nil
}

type outputData struct {
	Union   string
	Package string
}

// FileName returns the generated file name for a union.
func (c *Config) FileName(unionName, pkgName string) (string, error) {
	if c.output == nil {
		if err := c.compileOutput(); err != nil {
			return "", fmt.Errorf("%s: output: %w", c.path, err)
		}
	}
	var buf bytes.Buffer
	if err := c.output.Execute(&buf, outputData{Union: unionName, Package: pkgName}); err != nil {
		return "", fmt.Errorf("%s: output: %w", c.path, err)
	}
	return buf.String(), nil
}

// Lookup returns the unions entry for a root type. An entry naming the
// package wins over one that applies to every package.
func (c *Config) Lookup(pkgPath, typeName string) (UnionSpec, bool) {
	var wildcard *UnionSpec
	for i := range c.Unions {
		u := &c.Unions[i]
		if u.Type != typeName {
			continue
		}
		if u.Package == pkgPath {
			return *u, true
		}
		if u.Package == "" && wildcard == nil {
			wildcard = u
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return UnionSpec{}, false
}

// Declared returns the names of the unions sumgen.yaml declares for a
// package, in file order.
func (c *Config) Declared(pkgPath string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, u := range c.Unions {
		if (u.Package == "" || u.Package == pkgPath) && !seen[u.Type] {
			names = append(names, u.Type)
			seen[u.Type] = true
		}
	}
	return names
}

// Settings layers the settings of one union. dir may be nil when the root
// carries no directive.
func (c *Config) Settings(pkgPath, typeName string, dir *Directive) union.Settings {
	var s union.Settings
	// validate has already rejected unparsable method names.
	apply := func(switchMethods, mapMethods string, skip *bool) {
		if switchMethods != "" {
			s.SwitchMethods, _ = union.ParseMethodGeneration(switchMethods)
		}
		if mapMethods != "" {
			s.MapMethods, _ = union.ParseMethodGeneration(mapMethods)
		}
		if skip != nil {
			s.SkipImplicitConversionFromValue = *skip
		}
	}

	apply(c.Defaults.SwitchMethods, c.Defaults.MapMethods, c.Defaults.SkipImplicitConversionFromValue)
	if dir != nil {
		if dir.SwitchMethods != nil {
			s.SwitchMethods = *dir.SwitchMethods
		}
		if dir.MapMethods != nil {
			s.MapMethods = *dir.MapMethods
		}
		if dir.SkipImplicitConversion != nil {
			s.SkipImplicitConversionFromValue = *dir.SkipImplicitConversion
		}
	}
	if u, ok := c.Lookup(pkgPath, typeName); ok {
		apply(u.SwitchMethods, u.MapMethods, u.SkipImplicitConversionFromValue)
	}
	return s
}

// Package corpus describes a stub corpus on disk: where its files live,
// which Ruby version it documents, and how it is indexed and linted.
//
// A corpus is either a bare directory or a directory holding a corpus.toml:
//
//	name = "rubystubs34"
//	ruby_version = "3.4"      # inferred from a rubystubsNN directory when omitted
//	root = "."
//	include = ["core/**/*.rb", "stdlib/**/*.rb"]
//	exclude = ["**/vendor/**"]
//	reference = "reference/ruby-3.4.json"
//
//	[lint]
//	fail_on = "error"
//	disable = ["undocumented"]
//	externals = ["BasicObject"]
//
//	[index]
//	jobs = 8
//	db = "stubdex.db"
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stubdex/pkg/errors"
)

// FileName is the corpus configuration file looked up in a corpus directory.
const FileName = "corpus.toml"

// DefaultInclude matches every Ruby file under the root.
var DefaultInclude = []string{"**/*.rb"}

// Config describes a corpus.
type Config struct {
	Name        string      `toml:"name" validate:"required,max=100"`
	RubyVersion string      `toml:"ruby_version" validate:"omitempty,rubyversion"`
	Root        string      `toml:"root"`
	Include     []string    `toml:"include" validate:"dive,required,glob"`
	Exclude     []string    `toml:"exclude" validate:"dive,required,glob"`
	Reference   string      `toml:"reference"`
	Lint        LintConfig  `toml:"lint"`
	Index       IndexConfig `toml:"index"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// LintConfig holds lint defaults; command-line flags override them.
type LintConfig struct {
	FailOn    string   `toml:"fail_on" validate:"omitempty,oneof=info warning warn error"`
	Disable   []string `toml:"disable" validate:"dive,required"`
	Externals []string `toml:"externals" validate:"dive,required"`
}

// IndexConfig holds indexing defaults.
type IndexConfig struct {
	Jobs int    `toml:"jobs" validate:"gte=0,lte=256"`
	DB   string `toml:"db"`
}

// Load reads the corpus at path. A directory is loaded from its corpus.toml
// when present and otherwise described with defaults; any other path is read
// as a TOML configuration file.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "corpus %s", path)
	}
	if info.IsDir() {
		file := filepath.Join(path, FileName)
		if _, err := os.Stat(file); err == nil {
			return LoadFile(file)
		}
		cfg := Default(path)
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile reads a corpus.toml. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	cfg.dir = abs
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Default describes the directory dir with default settings.
func Default(dir string) *Config {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	cfg := &Config{dir: abs}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if len(c.Include) == 0 {
		c.Include = append([]string(nil), DefaultInclude...)
	}
	if c.Name == "" {
		c.Name = filepath.Base(c.RootDir())
	}
	if c.RubyVersion == "" {
		c.RubyVersion = InferRubyVersion(c.RootDir())
	}
}

// Dir returns the directory the configuration was loaded from.
func (c *Config) Dir() string { return c.dir }

// RootDir returns the absolute corpus root.
func (c *Config) RootDir() string { return c.resolve(c.Root) }

// ReferencePath returns the absolute reference path, or "" when none is set.
func (c *Config) ReferencePath() string {
	if c.Reference == "" {
		return ""
	}
	return c.resolve(c.Reference)
}

// DBPath returns the configured database path resolved against the
// configuration directory, or "" when none is set.
func (c *Config) DBPath() string {
	if c.Index.DB == "" {
		return ""
	}
	return c.resolve(c.Index.DB)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.dir, p)
}

var stubsDir = regexp.MustCompile(`^rubystubs(\d)(\d+)$`)

// InferRubyVersion derives a Ruby version from the nearest path element
// named rubystubsNN: rubystubs34 is 3.4 and rubystubs310 is 3.10. It returns
// "" when no element matches.
func InferRubyVersion(path string) string {
	elems := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	for i := len(elems) - 1; i >= 0; i-- {
		if m := stubsDir.FindStringSubmatch(elems[i]); m != nil {
			minor, _ := strconv.Atoi(m[2])
			return m[1] + "." + strconv.Itoa(minor)
		}
	}
	return ""
}

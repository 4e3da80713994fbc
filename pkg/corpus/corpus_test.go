package corpus

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/stubdex/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDirectoryDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rubystubs34")
	writeFile(t, filepath.Join(dir, "core", "array.rb"), "class Array; end\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "rubystubs34" || cfg.RubyVersion != "3.4" {
		t.Errorf("name/version = %q/%q", cfg.Name, cfg.RubyVersion)
	}
	if cfg.RootDir() != dir {
		t.Errorf("RootDir() = %q, want %q", cfg.RootDir(), dir)
	}
	if !slices.Equal(cfg.Include, DefaultInclude) {
		t.Errorf("Include = %v", cfg.Include)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
name = "core"
ruby_version = "3.3"
root = "stubs"
include = ["core/**/*.rb"]
exclude = ["**/vendor/**"]
reference = "ref.json"

[lint]
fail_on = "warning"
disable = ["undocumented"]
externals = ["Ghost"]

[index]
jobs = 4
db = "out/core.db"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "core" || cfg.RubyVersion != "3.3" || cfg.Index.Jobs != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RootDir() != filepath.Join(dir, "stubs") {
		t.Errorf("RootDir() = %q", cfg.RootDir())
	}
	if cfg.ReferencePath() != filepath.Join(dir, "ref.json") {
		t.Errorf("ReferencePath() = %q", cfg.ReferencePath())
	}
	if cfg.DBPath() != filepath.Join(dir, "out", "core.db") {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.Lint.FailOn != "warning" || !slices.Equal(cfg.Lint.Externals, []string{"Ghost"}) {
		t.Errorf("lint = %+v", cfg.Lint)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":        `name = `,
		"unknown key":   "name = \"x\"\nfial_on = \"error\"\n",
		"bad version":   "name = \"x\"\nruby_version = \"three\"\n",
		"bad fail_on":   "name = \"x\"\n[lint]\nfail_on = \"fatal\"\n",
		"bad glob":      "name = \"x\"\ninclude = [\"core/[.rb\"]\n",
		"too many jobs": "name = \"x\"\n[index]\njobs = 1000\n",
	}
	for name, content := range tests {
		path := filepath.Join(t.TempDir(), FileName)
		writeFile(t, path, content)
		_, err := LoadFile(path)
		if !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("%s: error = %v, want %s", name, err, errors.ErrCodeInvalidConfig)
		}
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("missing corpus: %v", err)
	}
}

func TestValidateMessages(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.RubyVersion = "latest"
	cfg.Lint.FailOn = "fatal"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{`ruby_version "latest"`, `lint.fail_on "fatal"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"core/array.rb", "core/io/file.rb", "core/README.md",
		"stdlib/set.rb", "core/vendor/gem.rb",
	} {
		writeFile(t, filepath.Join(dir, f), "")
	}
	writeFile(t, filepath.Join(dir, FileName), `
name = "core"
include = ["core/**/*.rb", "core/array.rb"]
exclude = ["**/vendor/**"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	files, err := cfg.Discover()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"core/array.rb", "core/io/file.rb"}
	if !slices.Equal(files, want) {
		t.Errorf("Discover() = %v, want %v", files, want)
	}

	for rel, want := range map[string]bool{
		"core/array.rb":      true,
		"core/vendor/gem.rb": false,
		"stdlib/set.rb":      false,
		"core/README.md":     false,
	} {
		if got := cfg.Matches(rel); got != want {
			t.Errorf("Matches(%q) = %v", rel, got)
		}
	}

	cfg.Root = "nope"
	if _, err := cfg.Discover(); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("missing root: %v", err)
	}
}

func TestInferRubyVersion(t *testing.T) {
	tests := map[string]string{
		"/src/rubystubs34":             "3.4",
		"/src/rubystubs310/core":       "3.10",
		"/src/rubystubs30":             "3.0",
		"/src/rubystubs27/rubystubs34": "3.4",
		"/src/stubs":                   "",
		"/src/rubystubs":               "",
	}
	for path, want := range tests {
		if got := InferRubyVersion(path); got != want {
			t.Errorf("InferRubyVersion(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "STUBDEX_DB=from-file.db\nSTUBDEX_ADDR=:9000\n")

	t.Setenv(EnvDB, "from-env.db")
	t.Setenv(EnvAddr, "")
	os.Unsetenv(EnvAddr)
	t.Setenv(EnvCacheDir, "/tmp/stubdex-cache")

	env := LoadEnv(envFile, filepath.Join(dir, "missing.env"))
	if env.DB != "from-env.db" {
		t.Errorf("DB = %q, existing variables must win", env.DB)
	}
	if env.Addr != ":9000" {
		t.Errorf("Addr = %q", env.Addr)
	}
	if got, _ := env.ResolveCacheDir(); got != "/tmp/stubdex-cache" {
		t.Errorf("ResolveCacheDir() = %q", got)
	}

	t.Setenv("XDG_CACHE_HOME", "/xdg")
	if got, _ := (Env{}).ResolveCacheDir(); got != filepath.Join("/xdg", "stubdex") {
		t.Errorf("ResolveCacheDir() with XDG = %q", got)
	}
}

func TestResolveDB(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Index.DB = "c.db"

	tests := []struct {
		flag string
		env  Env
		cfg  *Config
		want string
	}{
		{"flag.db", Env{DB: "env.db"}, cfg, "flag.db"},
		{"", Env{DB: "env.db"}, cfg, "env.db"},
		{"", Env{}, cfg, filepath.Join(dir, "c.db")},
		{"", Env{}, nil, "stubdex.db"},
	}
	for _, tt := range tests {
		if got := ResolveDB(tt.flag, tt.env, tt.cfg); got != tt.want {
			t.Errorf("ResolveDB(%q, %+v) = %q, want %q", tt.flag, tt.env, got, tt.want)
		}
	}
}

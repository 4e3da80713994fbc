package ruby

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stubdex/pkg/stub"
)

const fileStub = `# File and directory access.
#
# Second paragraph.
class File < IO
  include File::Constants

  # Opens a file.
  def self.open(path, mode = "r", *rest, **opts, &block) end

  # Returns the size.
  def size; end # trailing
  def length; end

  SEPARATOR = _
  ALT = "x"

  private

  def secret(a, b = 1, *c, d, e:, f: 2, **g, &h)
    _
  end

  protected def guarded; end

  public

  def real
    raise NotImplementedError
  end

  # Unrelated

  def forward(...) end
  def initialize(path) end
end
`

func parse(t *testing.T, src string) *stub.File {
	t.Helper()
	f, err := New().Parse(context.Background(), "core/file.rb", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return f
}

func mustModule(t *testing.T, f *stub.File, name string) *stub.Module {
	t.Helper()
	m, ok := f.Module(name)
	if !ok {
		var names []string
		for _, m := range f.Modules {
			names = append(names, m.Name)
		}
		t.Fatalf("module %s not found, have %v", name, names)
	}
	return m
}

func mustMethod(t *testing.T, m *stub.Module, name string, singleton bool) *stub.Method {
	t.Helper()
	meth, ok := m.Method(name, singleton)
	if !ok {
		t.Fatalf("%s not found", stub.MethodKey(m.Name, name, singleton))
	}
	return meth
}

func TestParseClass(t *testing.T) {
	f := parse(t, fileStub)
	if !f.Valid() {
		t.Fatalf("unexpected syntax errors: %v", f.Errors)
	}

	file := mustModule(t, f, "File")
	if file.Kind != stub.KindClass || file.Superclass != "IO" {
		t.Errorf("File kind/superclass = %v/%q", file.Kind, file.Superclass)
	}
	if want := "File and directory access.\n\nSecond paragraph."; file.Doc != want {
		t.Errorf("File doc = %q, want %q", file.Doc, want)
	}
	if diff := cmp.Diff([]string{"File::Constants"}, file.Includes); diff != "" {
		t.Errorf("Includes mismatch (-want +got):\n%s", diff)
	}
	if len(file.Locations) != 1 || file.Locations[0] != (stub.Location{File: "core/file.rb", Line: 4}) {
		t.Errorf("Locations = %v", file.Locations)
	}
}

func TestParseMethods(t *testing.T) {
	file := mustModule(t, parse(t, fileStub), "File")

	open := mustMethod(t, file, "open", true)
	if open.Doc != "Opens a file." || open.Visibility != stub.Public {
		t.Errorf("open doc/visibility = %q/%v", open.Doc, open.Visibility)
	}
	if want := `def self.open(path, mode = "r", *rest, **opts, &block)`; open.Signature() != want {
		t.Errorf("Signature() = %q, want %q", open.Signature(), want)
	}
	if open.HasBody {
		t.Error("open has an empty body")
	}

	if size := mustMethod(t, file, "size", false); size.Doc != "Returns the size." {
		t.Errorf("size doc = %q", size.Doc)
	}
	if length := mustMethod(t, file, "length", false); length.Doc != "" {
		t.Errorf("trailing comment leaked into doc: %q", length.Doc)
	}
	if fwd := mustMethod(t, file, "forward", false); fwd.Doc != "" {
		t.Errorf("comment separated by a blank line leaked into doc: %q", fwd.Doc)
	}

	secret := mustMethod(t, file, "secret", false)
	if secret.Visibility != stub.Private {
		t.Errorf("secret visibility = %v, want private", secret.Visibility)
	}
	if secret.HasBody {
		t.Error("`_` body should be a placeholder")
	}
	wantParams := []stub.Param{
		{Name: "a", Kind: stub.ParamRequired},
		{Name: "b", Kind: stub.ParamOptional, Default: "1"},
		{Name: "c", Kind: stub.ParamRest},
		{Name: "d", Kind: stub.ParamPost},
		{Name: "e", Kind: stub.ParamKeywordRequired},
		{Name: "f", Kind: stub.ParamKeyword, Default: "2"},
		{Name: "g", Kind: stub.ParamKeywordRest},
		{Name: "h", Kind: stub.ParamBlock},
	}
	if diff := cmp.Diff(wantParams, secret.Params); diff != "" {
		t.Errorf("secret params mismatch (-want +got):\n%s", diff)
	}

	if g := mustMethod(t, file, "guarded", false); g.Visibility != stub.Protected {
		t.Errorf("guarded visibility = %v, want protected", g.Visibility)
	}
	impl := mustMethod(t, file, "real", false)
	if impl.Visibility != stub.Public || !impl.HasBody {
		t.Errorf("real visibility/body = %v/%v", impl.Visibility, impl.HasBody)
	}
	if fwd := mustMethod(t, file, "forward", false); len(fwd.Params) != 1 || fwd.Params[0].Kind != stub.ParamForward {
		t.Errorf("forward params = %v", fwd.Params)
	}
	if ctor := mustMethod(t, file, "initialize", false); ctor.Visibility != stub.Private {
		t.Errorf("initialize visibility = %v, want private", ctor.Visibility)
	}
}

func TestParseConstants(t *testing.T) {
	file := mustModule(t, parse(t, fileStub), "File")

	sep, ok := file.Constant("SEPARATOR")
	if !ok || !sep.IsPlaceholder() {
		t.Errorf("SEPARATOR = %+v", sep)
	}
	alt, ok := file.Constant("ALT")
	if !ok || alt.Value != `"x"` || alt.IsPlaceholder() {
		t.Errorf("ALT = %+v", alt)
	}
}

func TestParseModuleFunctionAndSingletonClass(t *testing.T) {
	src := `module Kernel
  module_function

  # Prints objects.
  def puts(*objects) end
end

class Dir
  include Enumerable

  class << self
    def glob(pattern, flags = 0, base: nil) end

    private

    def hidden; end
  end

  attr_accessor :path
  attr_reader :fileno

  alias to_path path
  alias_method :each_child_name, :path

  def self.mktmpdir(prefix = nil) end
  private_class_method :mktmpdir
  private_class_method def self.sweep(path) end

  private :fileno
  alias_method :fd, :fileno
end

module Comparable
  def ==(other) end
  def <=>(other) end
  def []=(key, value) end
  module_function :==
end
`
	f := parse(t, src)

	kernel := mustModule(t, f, "Kernel")
	if kernel.Kind != stub.KindModule {
		t.Errorf("Kernel kind = %v", kernel.Kind)
	}
	if inst := mustMethod(t, kernel, "puts", false); inst.Visibility != stub.Private {
		t.Errorf("Kernel#puts visibility = %v, want private", inst.Visibility)
	}
	single := mustMethod(t, kernel, "puts", true)
	if single.Visibility != stub.Public || single.Doc != "Prints objects." {
		t.Errorf("Kernel.puts = %+v", single)
	}

	dir := mustModule(t, f, "Dir")
	if diff := cmp.Diff([]string{"Enumerable"}, dir.Includes); diff != "" {
		t.Errorf("Includes mismatch (-want +got):\n%s", diff)
	}
	glob := mustMethod(t, dir, "glob", true)
	if glob.Visibility != stub.Public {
		t.Errorf("Dir.glob visibility = %v", glob.Visibility)
	}
	if want := "def self.glob(pattern, flags = 0, base: nil)"; glob.Signature() != want {
		t.Errorf("Signature() = %q, want %q", glob.Signature(), want)
	}
	if h := mustMethod(t, dir, "hidden", true); h.Visibility != stub.Private {
		t.Errorf("Dir.hidden visibility = %v, want private", h.Visibility)
	}

	if p := mustMethod(t, dir, "path", false); !p.Attribute {
		t.Error("path should be an attribute")
	}
	setter := mustMethod(t, dir, "path=", false)
	if !setter.Attribute || len(setter.Params) != 1 {
		t.Errorf("path= = %+v", setter)
	}
	if _, ok := dir.Method("fileno=", false); ok {
		t.Error("attr_reader should not define a writer")
	}
	if a := mustMethod(t, dir, "to_path", false); a.AliasOf != "path" {
		t.Errorf("to_path alias = %q", a.AliasOf)
	}
	if a := mustMethod(t, dir, "each_child_name", false); a.AliasOf != "path" {
		t.Errorf("each_child_name alias = %q", a.AliasOf)
	}
	if m := mustMethod(t, dir, "mktmpdir", true); m.Visibility != stub.Private {
		t.Errorf("Dir.mktmpdir visibility = %v, want private", m.Visibility)
	}
	if m := mustMethod(t, dir, "sweep", true); m.Visibility != stub.Private {
		t.Errorf("Dir.sweep visibility = %v, want private", m.Visibility)
	}
	if a := mustMethod(t, dir, "fd", false); a.AliasOf != "fileno" || a.Visibility != stub.Private {
		t.Errorf("Dir#fd = %+v, want private alias of fileno", a)
	}
	if a := mustMethod(t, dir, "to_path", false); a.Visibility != stub.Public {
		t.Errorf("Dir#to_path visibility = %v, want public", a.Visibility)
	}

	cmpMod := mustModule(t, f, "Comparable")
	for _, name := range []string{"==", "<=>", "[]="} {
		mustMethod(t, cmpMod, name, false)
	}
	if eq := mustMethod(t, cmpMod, "==", false); eq.Visibility != stub.Private {
		t.Errorf("Comparable#== visibility = %v, want private", eq.Visibility)
	}
	mustMethod(t, cmpMod, "==", true)
}

func TestParseNamedSingletons(t *testing.T) {
	src := `class Foo
  def Foo.baz(a) end

  class << Foo
    def meta; end
  end

  def Other.skipped; end
end

class IO
  class Buffer
    def Buffer.map(io) end
  end
end
`
	f := parse(t, src)

	foo := mustModule(t, f, "Foo")
	if baz := mustMethod(t, foo, "baz", true); baz.Visibility != stub.Public || len(baz.Params) != 1 {
		t.Errorf("Foo.baz = %+v", baz)
	}
	mustMethod(t, foo, "meta", true)
	if _, ok := foo.Method("skipped", true); ok {
		t.Error("def Other.skipped should not attach to Foo")
	}

	buf := mustModule(t, f, "IO::Buffer")
	mustMethod(t, buf, "map", true)
}

func TestParseNesting(t *testing.T) {
	src := `class IO
  module Buffer
    LOCKED = _
  end

  class ::TopLevel
  end
end

class Process::Status
end

class Point < Struct.new(:x, :y)
end

class IO
  def reopened; end
end
`
	f := parse(t, src)

	buf := mustModule(t, f, "IO::Buffer")
	if _, ok := buf.Constant("LOCKED"); !ok {
		t.Error("IO::Buffer::LOCKED not found")
	}
	mustModule(t, f, "TopLevel")
	mustModule(t, f, "Process::Status")
	if p := mustModule(t, f, "Point"); p.Superclass != "Struct" {
		t.Errorf("Point superclass = %q, want Struct", p.Superclass)
	}

	io := mustModule(t, f, "IO")
	if len(io.Locations) != 2 {
		t.Errorf("IO locations = %v, want 2", io.Locations)
	}
	mustMethod(t, io, "reopened", false)
}

func TestParseTopLevel(t *testing.T) {
	f := parse(t, "# Global helper.\ndef helper(x) end\n")
	obj := mustModule(t, f, "Object")
	m := mustMethod(t, obj, "helper", false)
	if m.Visibility != stub.Private || m.Doc != "Global helper." {
		t.Errorf("helper = %+v", m)
	}
}

func TestParseBlockComment(t *testing.T) {
	src := "class Foo\n=begin\nBlock docs.\nMore.\n=end\n  def bar; end\nend\n"
	bar := mustMethod(t, mustModule(t, parse(t, src), "Foo"), "bar", false)
	if bar.Doc != "Block docs.\nMore." {
		t.Errorf("bar doc = %q", bar.Doc)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	src := `class Good
  def fine; end
end

class Broken
  def x(a,
end
`
	f := parse(t, src)
	if f.Valid() {
		t.Fatal("expected syntax errors")
	}
	for _, e := range f.Errors {
		if e.Line < 1 || e.Column < 1 || e.Message == "" {
			t.Errorf("malformed syntax error %+v", e)
		}
	}
	mustMethod(t, mustModule(t, f, "Good"), "fine", false)
}

func TestSupports(t *testing.T) {
	p := New()
	for name, want := range map[string]bool{
		"array.rb":    true,
		"ARRAY.RB":    true,
		"array.rbs":   false,
		"Gemfile":     false,
		"corpus.toml": false,
	} {
		if got := p.Supports(name); got != want {
			t.Errorf("Supports(%q) = %v, want %v", name, got, want)
		}
	}
	if p.Type() != "ruby" || p.Version() == "" {
		t.Errorf("Type/Version = %q/%q", p.Type(), p.Version())
	}
}

package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stubdex/pkg/cache"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/stub"
)

type fakeParser struct {
	ext string
}

func (f *fakeParser) Type() string    { return "fake" + f.ext }
func (f *fakeParser) Version() string { return "1" }
func (f *fakeParser) Supports(filename string) bool {
	return strings.HasSuffix(filename, f.ext)
}
func (f *fakeParser) Parse(ctx context.Context, path string, src []byte) (*stub.File, error) {
	return &stub.File{Path: path, Modules: []*stub.Module{{Name: strings.TrimSpace(string(src))}}}, nil
}

func TestDetect(t *testing.T) {
	rb := &fakeParser{ext: ".rb"}
	rbs := &fakeParser{ext: ".rbs"}

	tests := []struct {
		name     string
		path     string
		wantType string
		wantErr  bool
	}{
		{"ruby", "/stubs/core/array.rb", "fake.rb", false},
		{"signature", "sig/array.rbs", "fake.rbs", false},
		{"no match", "corpus.toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Detect(tt.path, rb, rbs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeUnsupported) {
					t.Errorf("Detect() error code = %v, want UNSUPPORTED", errors.GetCode(err))
				}
				return
			}
			if p.Type() != tt.wantType {
				t.Errorf("Detect() type = %s, want %s", p.Type(), tt.wantType)
			}
		})
	}
}

func TestRelPath(t *testing.T) {
	root := filepath.Join("stubs", "rubystubs34")
	tests := []struct {
		root, path, want string
	}{
		{root, filepath.Join(root, "core", "array.rb"), "core/array.rb"},
		{root, filepath.Join("elsewhere", "x.rb"), "elsewhere/x.rb"},
		{"", filepath.Join("a", "b.rb"), "a/b.rb"},
	}
	for _, tt := range tests {
		if got := RelPath(tt.root, tt.path); got != tt.want {
			t.Errorf("RelPath(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestParseFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "core", "array.rb")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("Array\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := ParseFile(context.Background(), &fakeParser{ext: ".rb"}, root, path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if f.Path != "core/array.rb" {
		t.Errorf("Path = %q", f.Path)
	}
	if f.Hash != cache.Hash([]byte("Array\n")) || len(f.Hash) != 64 {
		t.Errorf("Hash = %q", f.Hash)
	}
	if len(f.Modules) != 1 || f.Modules[0].Name != "Array" {
		t.Errorf("Modules = %v", f.Modules)
	}

	_, err = ParseFile(context.Background(), &fakeParser{ext: ".rb"}, root, filepath.Join(root, "missing.rb"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

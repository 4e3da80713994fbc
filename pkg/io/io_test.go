package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

var testMeta = Meta{
	Name:        "rubystubs34",
	RubyVersion: "3.4",
	Generator:   "stubdex test",
	Generated:   time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
}

func testDB() *index.Database {
	array := &stub.Module{
		Name:       "Array",
		Kind:       stub.KindClass,
		Superclass: "Object",
		Includes:   []string{"Enumerable"},
		Doc:        "Ordered collection.",
		Constants:  []stub.Constant{{Name: "MAX", Value: "_", Location: stub.Location{File: "array.rb", Line: 2}}},
		Methods: []stub.Method{
			{Name: "each", Doc: "Iterates.", Params: []stub.Param{{Name: "block", Kind: stub.ParamBlock}}, Location: stub.Location{File: "array.rb", Line: 4}},
			{Name: "new", Singleton: true, Params: []stub.Param{{Name: "size", Kind: stub.ParamOptional, Default: "0"}}, Location: stub.Location{File: "array.rb", Line: 5}},
			{Name: "true", Visibility: stub.Private, Location: stub.Location{File: "array.rb", Line: 6}},
		},
		Locations: []stub.Location{{File: "array.rb", Line: 1}},
	}
	enum := &stub.Module{Name: "Enumerable", Kind: stub.KindModule, Locations: []stub.Location{{File: "enum.rb", Line: 1}}}
	object := &stub.Module{Name: "Object", Kind: stub.KindClass, Locations: []stub.Location{{File: "enum.rb", Line: 3}}}
	redo := &stub.Module{Name: "Array", Kind: stub.KindClass, Methods: []stub.Method{
		{Name: "each", Location: stub.Location{File: "ext.rb", Line: 2}},
	}}
	return index.FromFiles(
		&stub.File{Path: "array.rb", Hash: "aa", Modules: []*stub.Module{array}},
		&stub.File{Path: "enum.rb", Hash: "bb", Modules: []*stub.Module{enum, object}},
		&stub.File{Path: "ext.rb", Hash: "cc", Modules: []*stub.Module{redo}},
		&stub.File{Path: "bad.rb", Hash: "dd", Errors: []stub.SyntaxError{{Line: 1, Column: 3, Message: "missing \"end\""}}},
	)
}

func TestJSONRoundTrip(t *testing.T) {
	db := testDB()
	var buf bytes.Buffer
	if err := WriteJSON(db, testMeta, &buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"format": "stubdex/v1"`) {
		t.Errorf("output missing format tag:\n%s", buf.String())
	}

	got, meta, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if diff := cmp.Diff(testMeta, meta); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(db.Snapshot(), got.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	res, err := got.Lookup("Array", "each_slice", index.LookupOptions{Inherited: true})
	if err == nil {
		t.Errorf("Lookup(each_slice) = %v, want error", res)
	}
	if _, err := got.Lookup("Array", "new", index.LookupOptions{Singleton: true}); err != nil {
		t.Errorf("Lookup(Array.new) error = %v", err)
	}
}

func TestJSONDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := WriteJSON(testDB(), testMeta, &a); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(testDB(), testMeta, &b); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("exports of the same database differ")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	db := testDB()
	var buf bytes.Buffer
	if err := WriteYAML(db, testMeta, &buf); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	out := buf.String()
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "format: stubdex/v1") {
		t.Errorf("output is not block YAML:\n%s", out)
	}

	got, meta, err := ReadYAML(&buf)
	if err != nil {
		t.Fatalf("ReadYAML() error = %v", err)
	}
	if meta.Name != testMeta.Name || !meta.Generated.Equal(testMeta.Generated) {
		t.Errorf("meta = %+v", meta)
	}
	if diff := cmp.Diff(db.Snapshot(), got.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestExportImportFiles(t *testing.T) {
	dir := t.TempDir()
	db := testDB()
	for _, name := range []string{"db.json", "db.yaml", "db.YML"} {
		path := filepath.Join(dir, name)
		if err := Export(db, testMeta, path); err != nil {
			t.Fatalf("Export(%s) error = %v", name, err)
		}
		got, _, err := Import(path)
		if err != nil {
			t.Fatalf("Import(%s) error = %v", name, err)
		}
		if got.Stats() != db.Stats() {
			t.Errorf("%s: stats = %+v, want %+v", name, got.Stats(), db.Stats())
		}
	}

	if _, _, err := ImportJSON(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ImportJSON(missing) should fail")
	}
}

func TestReadInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":      `{"format": `,
		"wrong format":  `{"format": "graph/v1", "modules": []}`,
		"no format":     `{"modules": []}`,
		"bad name":      `{"format": "stubdex/v1", "modules": [{"name": "lower::case", "kind": "class"}]}`,
		"null module":   `{"format": "stubdex/v1", "modules": [null]}`,
		"bad kind":      `{"format": "stubdex/v1", "modules": [{"name": "A", "kind": "struct"}]}`,
		"escaping path": `{"format": "stubdex/v1", "files": [{"path": "../etc/passwd", "hash": "x"}], "modules": []}`,
	}
	for name, input := range tests {
		_, _, err := ReadJSON(strings.NewReader(input))
		if !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("%s: error = %v, want %s", name, err, errors.ErrCodeInvalidFormat)
		}
	}
}

func TestIsYAML(t *testing.T) {
	for path, want := range map[string]bool{
		"a.yaml": true, "a.YML": true, "a.json": false, "a": false,
	} {
		if IsYAML(path) != want {
			t.Errorf("IsYAML(%q) = %v", path, !want)
		}
	}
}

func TestExportDoesNotTruncateOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Export(testDB(), testMeta, filepath.Join(path, "nested.json")); err == nil {
		t.Error("Export into a file path should fail")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "keep" {
		t.Errorf("existing file modified: %q", data)
	}
}

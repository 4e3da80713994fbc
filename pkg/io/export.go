package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stubdex/pkg/index"
)

// Format is the tag written to, and required of, every document.
const Format = "stubdex/v1"

// Meta describes where a document came from.
type Meta struct {
	Name        string
	RubyVersion string
	Generator   string
	Generated   time.Time
}

// Document is the on-disk form of a database.
type Document struct {
	Format      string      `json:"format"`
	Name        string      `json:"name,omitempty"`
	RubyVersion string      `json:"ruby_version,omitempty"`
	Generator   string      `json:"generator,omitempty"`
	Generated   time.Time   `json:"generated"`
	Stats       index.Stats `json:"stats"`
	index.Snapshot
}

// NewDocument captures db with the given metadata.
func NewDocument(db *index.Database, meta Meta) Document {
	return Document{
		Format:      Format,
		Name:        meta.Name,
		RubyVersion: meta.RubyVersion,
		Generator:   meta.Generator,
		Generated:   meta.Generated.UTC(),
		Stats:       db.Stats(),
		Snapshot:    db.Snapshot(),
	}
}

// Meta returns the document's metadata.
func (d Document) Meta() Meta {
	return Meta{Name: d.Name, RubyVersion: d.RubyVersion, Generator: d.Generator, Generated: d.Generated}
}

// WriteJSON encodes db as an indented stubdex/v1 JSON document.
// The output can be re-imported with [ReadJSON].
func WriteJSON(db *index.Database, meta Meta, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(db, meta)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteYAML encodes db as a block-style YAML document.
//
// The document is first rendered through its JSON field names so both
// encodings share one schema.
func WriteYAML(db *index.Database, meta Meta, w io.Writer) error {
	data, err := json.Marshal(NewDocument(db, meta))
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles a JSON source leaves on the
// tree. The encoder still quotes strings that would otherwise change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// ExportJSON writes db to a JSON file at path.
func ExportJSON(db *index.Database, meta Meta, path string) error {
	return export(path, func(w io.Writer) error { return WriteJSON(db, meta, w) })
}

// Export writes db to path, picking YAML for .yaml and .yml files and JSON
// otherwise.
func Export(db *index.Database, meta Meta, path string) error {
	if IsYAML(path) {
		return export(path, func(w io.Writer) error { return WriteYAML(db, meta, w) })
	}
	return ExportJSON(db, meta, path)
}

// IsYAML reports whether path names a YAML file.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// export writes through a buffer so a failed encode leaves no partial file.
func export(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

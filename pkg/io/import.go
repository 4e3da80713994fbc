package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
)

// ReadJSON decodes a stubdex/v1 JSON document and restores its database.
func ReadJSON(r io.Reader) (*index.Database, Meta, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, Meta{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	return restore(doc)
}

// ReadYAML decodes a document written by [WriteYAML].
func ReadYAML(r io.Reader) (*index.Database, Meta, error) {
	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, Meta{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, Meta{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Meta{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	return restore(doc)
}

// ImportJSON reads a JSON document from path.
func ImportJSON(path string) (*index.Database, Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// Import reads a document from path, decoding YAML for .yaml and .yml files
// and JSON otherwise.
func Import(path string) (*index.Database, Meta, error) {
	if !IsYAML(path) {
		return ImportJSON(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadYAML(f)
}

func restore(doc Document) (*index.Database, Meta, error) {
	if doc.Format != Format {
		return nil, Meta{}, errors.New(errors.ErrCodeInvalidFormat,
			"unsupported document format %q, want %q", doc.Format, Format)
	}
	for i, m := range doc.Modules {
		if m == nil {
			return nil, Meta{}, errors.New(errors.ErrCodeInvalidFormat, "module %d is empty", i)
		}
		if err := errors.ValidateModuleName(m.Name); err != nil {
			return nil, Meta{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "module %d", i)
		}
	}
	for _, f := range doc.Files {
		if err := errors.ValidatePath(f.Path); err != nil {
			return nil, Meta{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "file %q", f.Path)
		}
	}
	return index.Restore(doc.Snapshot), doc.Meta(), nil
}

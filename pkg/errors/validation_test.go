package errors

import (
	"strings"
	"testing"
)

func TestValidateModuleName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "Array", false},
		{"valid nested", "IO::Buffer", false},
		{"valid deep", "Process::Status::Foo", false},
		{"valid absolute", "::Comparable", false},
		{"valid underscore", "RbConfig_2", false},

		{"empty", "", true},
		{"too long", "A" + strings.Repeat("b", 300), true},
		{"lowercase", "array", true},
		{"trailing separator", "IO::", true},
		{"double separator", "IO::::Buffer", true},
		{"method key", "Array#each", true},
		{"dot", "File.open", true},
		{"space", "Foo Bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModuleName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateModuleName(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateMethodName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "each", false},
		{"valid predicate", "empty?", false},
		{"valid bang", "map!", false},
		{"valid setter", "name=", false},
		{"valid private", "_dump", false},
		{"valid capitalized", "Integer", false},
		{"valid index", "[]", false},
		{"valid index setter", "[]=", false},
		{"valid spaceship", "<=>", false},
		{"valid unary minus", "-@", false},

		{"empty", "", true},
		{"double suffix", "empty??", true},
		{"leading digit", "1st", true},
		{"space", "each with", true},
		{"unknown operator", "<=>>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMethodName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMethodName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	valid := []string{"array.rb", "core/io/buffer.rb", "rubystubs34/v3.4/kernel.rb", "core/..hidden.rb"}
	invalid := []string{
		"", string(make([]byte, 600)), "/etc/passwd", "../../../etc/passwd", "foo/../bar",
		"foo\x00bar", "foo\\bar", "foo\x01bar", "foo\nbar",
	}
	for _, p := range valid {
		if err := ValidatePath(p); err != nil {
			t.Errorf("ValidatePath(%q) = %v", p, err)
		}
	}
	for _, p := range invalid {
		if err := ValidatePath(p); !Is(err, ErrCodeInvalidPath) {
			t.Errorf("ValidatePath(%q) = %v, want INVALID_PATH", p, err)
		}
	}
}

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"each", false},
		{"Array#", false},
		{"", true},
		{"   ", true},
		{"foo\x00", true},
		{strings.Repeat("x", 300), true},
	}

	for _, tt := range tests {
		if err := ValidateSearchQuery(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateSearchQuery(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

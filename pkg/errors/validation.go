package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// constantSegmentRegex matches a single Ruby constant name segment.
var constantSegmentRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// methodNameRegex matches identifier-style method names including the
// predicate, bang and setter suffixes.
var methodNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*[?!=]?$`)

// operatorMethods lists the operator names Ruby allows as method names.
var operatorMethods = map[string]bool{
	"[]": true, "[]=": true, "+": true, "-": true, "*": true, "/": true, "%": true,
	"**": true, "==": true, "!=": true, "===": true, "=~": true, "!~": true,
	"<=>": true, "<": true, "<=": true, ">": true, ">=": true, "<<": true, ">>": true,
	"&": true, "|": true, "^": true, "~": true, "!": true, "+@": true, "-@": true, "`": true,
}

// ValidateModuleName validates a qualified class or module name such as
// "IO::Buffer". A leading "::" is accepted and means the top-level namespace.
func ValidateModuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "module name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidName, "module name too long (max 256 characters)")
	}

	for _, seg := range strings.Split(strings.TrimPrefix(name, "::"), "::") {
		if !constantSegmentRegex.MatchString(seg) {
			return New(ErrCodeInvalidName, "invalid module name: %q", name)
		}
	}
	return nil
}

// ValidateMethodName validates a Ruby method name. Identifiers may end in
// `?`, `!` or `=`; operator methods such as "[]" and "<=>" are accepted too.
func ValidateMethodName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "method name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidName, "method name too long (max 256 characters)")
	}
	if operatorMethods[name] || methodNameRegex.MatchString(name) {
		return nil
	}
	return New(ErrCodeInvalidName, "invalid method name: %q", name)
}

// ValidatePath validates a file path within a stub corpus for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative to the corpus root)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateSearchQuery validates a free-text search query.
func ValidateSearchQuery(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return New(ErrCodeInvalidInput, "search query cannot be empty")
	}
	if len(q) > 256 {
		return New(ErrCodeInvalidInput, "search query too long (max 256 characters)")
	}
	for _, r := range q {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "search query contains control characters")
		}
	}
	return nil
}

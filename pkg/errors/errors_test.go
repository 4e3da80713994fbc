package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeModuleNotFound, "no module %s", "Hash")
	if got, want := err.Error(), "MODULE_NOT_FOUND: no module Hash"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := Wrap(ErrCodeStorage, fs.ErrPermission, "save %s", "stubdex.db")
	if got, want := wrapped.Error(), "STORAGE: save stubdex.db: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(wrapped, fs.ErrPermission) {
		t.Error("wrapped error does not match its cause")
	}
}

func TestCodes(t *testing.T) {
	inner := New(ErrCodeInvalidName, "invalid module name: %q", "array")
	outer := Wrap(ErrCodeInvalidFormat, inner, "module 3")
	plain := fmt.Errorf("lookup: %w", New(ErrCodeMethodNotFound, "no method"))

	tests := []struct {
		name     string
		err      error
		code     Code
		notFound bool
		invalid  bool
	}{
		{"coded", inner, ErrCodeInvalidName, false, true},
		{"outermost code wins", outer, ErrCodeInvalidFormat, false, true},
		{"through fmt wrapping", plain, ErrCodeMethodNotFound, true, false},
		{"module", New(ErrCodeModuleNotFound, "x"), ErrCodeModuleNotFound, true, false},
		{"stage failure", New(ErrCodeParse, "x"), ErrCodeParse, false, false},
		{"uncoded", errors.New("boom"), "", false, false},
		{"nil", nil, "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%q) = false", tt.code)
			}
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := IsInvalid(tt.err); got != tt.invalid {
				t.Errorf("IsInvalid() = %v, want %v", got, tt.invalid)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(ErrCodeMethodNotFound, "no method Array#frob"), "no method Array#frob"},
		{Wrap(ErrCodeInvalidFormat, New(ErrCodeInvalidName, "bad name"), "module 2"), "module 2: bad name"},
		{Wrap(ErrCodeStorage, fs.ErrNotExist, "open runs"), "open runs: file does not exist"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

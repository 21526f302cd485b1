package errors

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInternal, cause, "failed to read")

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNotFound,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeInternal,
			expected: true,
		},
		{
			name:     "stage tagged",
			err:      WithStage(StageRender, EmptyData("no rows")),
			code:     ErrCodeEmptyData,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("context: %w", NotFound("gene", []string{"X"})),
			code:     ErrCodeNotFound,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeUnsupported, "test"), ErrCodeUnsupported},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("gene", []string{"NOPE", "ALSO"})

	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotFound)
	}
	want := []string{"NOPE", "ALSO"}
	if !reflect.DeepEqual(err.Detail.Identifiers, want) {
		t.Errorf("Identifiers = %v, want %v", err.Detail.Identifiers, want)
	}
	if err.Detail.Axis != "gene" {
		t.Errorf("Axis = %q, want gene", err.Detail.Axis)
	}
	if err.Message != `unknown gene: "NOPE", "ALSO"` {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestUnknownOption(t *testing.T) {
	err := UnknownOption([]string{"colr", "zz"})
	if err.Detail.Option != "colr" {
		t.Errorf("Option = %q, want colr", err.Detail.Option)
	}
	if len(err.Detail.Options) != 2 {
		t.Errorf("Options = %v, want 2 entries", err.Detail.Options)
	}
}

func TestInvalidOption(t *testing.T) {
	err := InvalidOption("width", "must be > 0")
	if err.Code != ErrCodeInvalidOption {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidOption)
	}
	if err.Detail.Option != "width" || err.Detail.Constraint != "must be > 0" {
		t.Errorf("Detail = %+v", err.Detail)
	}
	if err.Message != `option "width" must be > 0` {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestSchemaMismatch(t *testing.T) {
	err := SchemaMismatch("gene_gene", []string{"y"}, []string{"z"}, []string{"x", "y"}, []string{"x", "z"})

	d, ok := GetDetail(WithStage(StageRender, err))
	if !ok {
		t.Fatal("GetDetail() ok = false, want true")
	}
	if !reflect.DeepEqual(d.Missing, []string{"y"}) {
		t.Errorf("Missing = %v", d.Missing)
	}
	if !reflect.DeepEqual(d.Extra, []string{"z"}) {
		t.Errorf("Extra = %v", d.Extra)
	}
	if !reflect.DeepEqual(d.Expected, []string{"x", "y"}) {
		t.Errorf("Expected = %v", d.Expected)
	}
}

func TestGetDetailPlainError(t *testing.T) {
	if _, ok := GetDetail(errors.New("plain")); ok {
		t.Error("GetDetail(plain) ok = true, want false")
	}
}

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidOptions, "test message: %s", "value")

	if err.Code != ErrCodeInvalidOptions {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidOptions)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_OPTIONS: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeProvisionFailed, cause, "install failed")

	if err.Code != ErrCodeProvisionFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeProvisionFailed)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
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
			err:      New(ErrCodeMissingPrerequisite, "test"),
			code:     ErrCodeMissingPrerequisite,
			expected: true,
		},
		{
			name:     "different code",
			err:      New(ErrCodeMissingPrerequisite, "test"),
			code:     ErrCodeProvisionFailed,
			expected: false,
		},
		{
			name:     "wrapped with fmt",
			err:      fmt.Errorf("pack style: %w", New(ErrCodeMissingPrerequisite, "test")),
			code:     ErrCodeMissingPrerequisite,
			expected: true,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			code:     ErrCodeInternal,
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
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidPackage, "test"),
			expected: ErrCodeInvalidPackage,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
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
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidOptions, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestProvisionError(t *testing.T) {
	exit := errors.New("exit status 1")
	perr := &ProvisionError{
		Package: "ts-loader",
		Version: "5.4.4",
		Command: "npm install ts-loader@5.4.4",
		Output:  "npm ERR! 404",
		Err:     exit,
	}
	err := Wrap(ErrCodeProvisionFailed, perr, "install %s@%s", perr.Package, perr.Version)

	if !Is(err, ErrCodeProvisionFailed) {
		t.Error("wrapped provision error lost its code")
	}
	if !errors.Is(err, exit) {
		t.Error("errors.Is(err, exit) = false, want true")
	}

	var target *ProvisionError
	if !errors.As(err, &target) {
		t.Fatal("errors.As did not find *ProvisionError")
	}
	if !strings.Contains(target.Error(), "npm ERR! 404") {
		t.Errorf("Error() = %q, want command output included", target.Error())
	}
}

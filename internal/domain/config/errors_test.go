package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *UserError
		expected string
	}{
		{
			name:     "simple message",
			err:      &UserError{Code: ErrCodeNotFound, Message: "source not found"},
			expected: "source not found",
		},
		{
			name:     "message with context",
			err:      &UserError{Code: ErrCodeNotFound, Message: "source not found", Context: "community"},
			expected: "source not found (at community)",
		},
		{
			name: "suggestion is not part of Error",
			err: &UserError{
				Code:       ErrCodeNotFound,
				Message:    "source not found",
				Context:    "community",
				Suggestion: "run list",
			},
			expected: "source not found (at community)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUserError_Format(t *testing.T) {
	t.Parallel()

	err := NewUserError(ErrCodeSecurityViolation, "Checksum mismatch").
		WithContext("https://cdn.example.com/a.zip").
		WithSuggestion("Do not install it.")

	assert.Equal(t,
		"[SECURITY_VIOLATION] Checksum mismatch\n  Location: https://cdn.example.com/a.zip\n  Suggestion: Do not install it.",
		err.Format())
}

func TestUserError_IsAndUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")
	err := &UserError{Code: ErrCodeNetwork, Message: "x", Underlying: inner}

	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, fmt.Errorf("wrap: %w", err), &UserError{Code: ErrCodeNetwork})
	assert.NotErrorIs(t, err, &UserError{Code: ErrCodeDecode})
	assert.Nil(t, GetUserError(inner))
}

func TestExplain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		code       string
		message    string
		suggestion bool
	}{
		{"checksum", &extension.SecurityError{Reason: "Checksum mismatch"}, ErrCodeSecurityViolation, "Checksum mismatch", true},
		{"blocked", &extension.SecurityError{Reason: "Blocked domain: localhost"}, ErrCodeSecurityViolation, "Blocked domain: localhost", true},
		{"validation", &extension.ValidationError{Reason: "Source name cannot be empty"}, ErrCodeValidationFailed, "Source name cannot be empty", false},
		{"not found", &extension.NotFoundError{Kind: "source", ID: "x"}, ErrCodeNotFound, "source not found", true},
		{"status", &extension.NetworkError{URL: "https://s", StatusCode: 502}, ErrCodeNetwork, "catalog returned status 502", true},
		{"transport", &extension.NetworkError{URL: "https://s", Err: errors.New("refused")}, ErrCodeNetwork, "catalog request failed", true},
		{"decode", &extension.DecodeError{Err: errors.New("eof")}, ErrCodeDecode, "malformed JSON document", true},
		{"io", &extension.IOError{Path: "m.json", Err: errors.New("denied")}, ErrCodeFileNotFound, "cannot read file", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			explained := Explain(fmt.Errorf("install: %w", tt.err))
			ue := GetUserError(explained)
			require.NotNil(t, ue)
			assert.Equal(t, tt.code, ue.Code)
			assert.Equal(t, tt.message, ue.Message)
			assert.Equal(t, tt.suggestion, ue.Suggestion != "")
			assert.ErrorIs(t, explained, tt.err)
		})
	}

	plain := errors.New("plain")
	assert.Same(t, plain, Explain(plain))
	assert.NoError(t, Explain(nil))

	ue := NewUserError(ErrCodeConfigInvalid, "bad")
	assert.Same(t, ue, Explain(ue))
}

func TestNewYAMLParseError(t *testing.T) {
	t.Parallel()

	err := NewYAMLParseError("config.yaml", errors.New("yaml: line 3: found character that cannot start any token"))
	assert.Equal(t, ErrCodeConfigParse, err.Code)
	assert.Equal(t, "invalid character in YAML", err.Message)
	assert.Equal(t, "config.yaml (line 3)", err.Context)
	assert.NotEmpty(t, err.Suggestion)
}

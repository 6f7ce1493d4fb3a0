package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSearchInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   *SearchInput
		wantErr bool
		errMsg  string
	}{
		{name: "valid minimal", input: &SearchInput{}},
		{name: "valid full", input: &SearchInput{SourceID: "community", Tags: []string{"retro", "pixel art"}, Search: "crt", Page: 2, Limit: 10}},
		{name: "invalid source", input: &SearchInput{SourceID: "a;b"}, wantErr: true, errMsg: "invalid source_id"},
		{name: "invalid tag", input: &SearchInput{Tags: []string{"ok", "a&b"}}, wantErr: true, errMsg: "invalid tag"},
		{name: "control char", input: &SearchInput{Search: "a\x00b"}, wantErr: true, errMsg: "invalid search"},
		{name: "negative page", input: &SearchInput{Page: -1}, wantErr: true, errMsg: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSearchInput(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateInstallInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   *InstallInput
		wantErr bool
	}{
		{name: "valid", input: &InstallInput{ExtensionID: "neon-theme", Confirm: true}},
		{name: "valid with source", input: &InstallInput{SourceID: "default", ExtensionID: "neon-theme"}},
		{name: "missing id", input: &InstallInput{}, wantErr: true},
		{name: "traversal id", input: &InstallInput{ExtensionID: "../../etc"}, wantErr: true},
		{name: "bad source", input: &InstallInput{SourceID: "a/b", ExtensionID: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateInstallInput(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDetailsInput(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateDetailsInput(&DetailsInput{ExtensionID: "igdb"}))
	assert.Error(t, ValidateDetailsInput(&DetailsInput{ExtensionID: ""}))
	assert.Error(t, ValidateDetailsInput(&DetailsInput{SourceID: "x y", ExtensionID: "igdb"}))
}

func TestValidateValidateManifestInput(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateValidateManifestInput(&ValidateManifestInput{Path: "ext/manifest.json"}))
	assert.Error(t, ValidateValidateManifestInput(&ValidateManifestInput{}))
	assert.Error(t, ValidateValidateManifestInput(&ValidateManifestInput{Path: "../manifest.json"}))
}

package mcp

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/extkit/internal/validation"
)

// ValidateSearchInput validates SearchInput fields.
func ValidateSearchInput(in *SearchInput) error {
	if in.SourceID != "" {
		if err := validation.ValidateSourceID(in.SourceID); err != nil {
			return fmt.Errorf("invalid source_id: %w", err)
		}
	}
	for _, tag := range in.Tags {
		if err := validation.ValidateTag(tag); err != nil {
			return fmt.Errorf("invalid tag: %w", err)
		}
	}
	if err := validation.ValidateSearch(in.Search); err != nil {
		return fmt.Errorf("invalid search: %w", err)
	}
	if in.Page < 0 || in.Limit < 0 {
		return errors.New("page and limit must not be negative")
	}
	return nil
}

// ValidateDetailsInput validates DetailsInput fields.
func ValidateDetailsInput(in *DetailsInput) error {
	if in.SourceID != "" {
		if err := validation.ValidateSourceID(in.SourceID); err != nil {
			return fmt.Errorf("invalid source_id: %w", err)
		}
	}
	if err := validation.ValidateExtensionID(in.ExtensionID); err != nil {
		return fmt.Errorf("invalid extension_id: %w", err)
	}
	return nil
}

// ValidateValidateManifestInput validates ValidateManifestInput fields.
func ValidateValidateManifestInput(in *ValidateManifestInput) error {
	if err := validation.ValidatePath(in.Path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return nil
}

// ValidateInstallInput validates InstallInput fields.
func ValidateInstallInput(in *InstallInput) error {
	if in.SourceID != "" {
		if err := validation.ValidateSourceID(in.SourceID); err != nil {
			return fmt.Errorf("invalid source_id: %w", err)
		}
	}
	if err := validation.ValidateExtensionID(in.ExtensionID); err != nil {
		return fmt.Errorf("invalid extension_id: %w", err)
	}
	return nil
}

// Package validation checks identifiers and free-form input that arrive from
// the command line or from MCP clients before they reach the domain.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidExtensionID = errors.New("invalid extension id")
	ErrInvalidSourceID    = errors.New("invalid source id")
	ErrInvalidTag         = errors.New("invalid tag")
	ErrInvalidSearch      = errors.New("invalid search term")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrInvalidPath        = errors.New("invalid path")
	ErrControlCharacter   = errors.New("control character detected")
)

const (
	maxIDLength     = 128
	maxTagLength    = 64
	maxSearchLength = 256
)

var (
	// extensionIDRegex matches catalog ids such as "neon-theme", "igdb.metadata"
	// or "retro_pack2".
	extensionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

	// sourceIDRegex matches source ids including generated UUIDs.
	sourceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

	// tagRegex matches catalog tags such as "retro" or "pixel-art".
	tagRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _-]*$`)

	// controlCharRegex matches ASCII control characters.
	controlCharRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateExtensionID validates an extension id. Ids become directory names
// in the artifact store.
func ValidateExtensionID(id string) error {
	if id == "" {
		return ErrEmptyInput
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id too long (max %d characters)", ErrInvalidExtensionID, maxIDLength)
	}
	if !extensionIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidExtensionID, id)
	}
	return nil
}

// ValidateSourceID validates a source id.
func ValidateSourceID(id string) error {
	if id == "" {
		return ErrEmptyInput
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id too long (max %d characters)", ErrInvalidSourceID, maxIDLength)
	}
	if !sourceIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidSourceID, id)
	}
	return nil
}

// ValidateTag validates a single search tag.
func ValidateTag(tag string) error {
	if tag == "" {
		return ErrEmptyInput
	}
	if len(tag) > maxTagLength {
		return fmt.Errorf("%w: tag too long (max %d characters)", ErrInvalidTag, maxTagLength)
	}
	if !tagRegex.MatchString(tag) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidTag, tag)
	}
	return nil
}

// ValidateSearch validates a free-text search term. The empty term is
// allowed and means no text filter.
func ValidateSearch(term string) error {
	if len(term) > maxSearchLength {
		return fmt.Errorf("%w: term too long (max %d characters)", ErrInvalidSearch, maxSearchLength)
	}
	if controlCharRegex.MatchString(term) {
		return fmt.Errorf("%w: search term", ErrControlCharacter)
	}
	return nil
}

// ValidatePath validates a file path and rejects traversal sequences.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyInput
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}

	if containsPathTraversal(path) {
		return fmt.Errorf("%w: %q contains traversal sequence", ErrPathTraversal, path)
	}

	return nil
}

// containsPathTraversal checks for common path traversal patterns.
func containsPathTraversal(path string) bool {
	// Check the raw segments first; Clean would fold "a/../b" away.
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}

	normalized := filepath.Clean(path)
	for _, seg := range strings.Split(normalized, string(filepath.Separator)) {
		if seg == ".." {
			return true
		}
	}

	lower := strings.ToLower(path)
	return strings.Contains(lower, "%2e%2e")
}

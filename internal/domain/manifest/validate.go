package manifest

import (
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// Permissions a manifest may request.
const (
	PermFilesystem = "filesystem"
	PermNetwork    = "network"
	PermDatabase   = "database"
	PermUI         = "ui"
	PermNative     = "native"
)

// AllowedPermissions is the permission whitelist in declaration order.
func AllowedPermissions() []string {
	return []string{PermFilesystem, PermNetwork, PermDatabase, PermUI, PermNative}
}

// DangerousPermissions may never be requested by a manifest fetched from a
// store, even though Validate accepts them.
func DangerousPermissions() []string {
	return []string{PermFilesystem, PermNative}
}

// IsAllowedPermission reports whether perm is on the whitelist.
func IsAllowedPermission(perm string) bool {
	return contains(AllowedPermissions(), perm)
}

// Validate checks the manifest's required fields and permissions. Rules run
// in a fixed order and the first failure is returned:
// name, version, entry point, then each permission in list order.
func Validate(m *extension.Manifest) error {
	if m.Name == "" {
		return &extension.ValidationError{Reason: "Name is required"}
	}
	if m.Version == "" {
		return &extension.ValidationError{Reason: "Version is required"}
	}
	if m.EntryPoint == "" {
		return &extension.ValidationError{Reason: "Entry point is required"}
	}
	for _, perm := range m.Permissions {
		if !IsAllowedPermission(perm) {
			return &extension.ValidationError{Reason: "Invalid permission: " + perm}
		}
	}
	return nil
}

// ValidateStoreOrigin is the stricter pass for manifests downloaded from a
// catalog. It rejects path traversal in the name or entry point and any
// dangerous permission.
func ValidateStoreOrigin(m *extension.Manifest) error {
	if strings.Contains(m.Name, "..") || strings.Contains(m.Name, "/") {
		return &extension.SecurityError{Reason: "Invalid extension name"}
	}
	if strings.Contains(m.EntryPoint, "..") {
		return &extension.SecurityError{Reason: "Invalid entry point"}
	}
	for _, perm := range m.Permissions {
		if contains(DangerousPermissions(), perm) {
			return &extension.SecurityError{Reason: "Dangerous permission requested: " + perm}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

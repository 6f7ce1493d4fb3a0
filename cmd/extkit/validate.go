package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/integrity"
	"github.com/felixgeelhaar/extkit/internal/domain/registry"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/validation"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest.json>",
	Short: "Validate an extension manifest",
	Long: `Validate an extension manifest and check its dependencies against the
installed extensions.

With --store-origin the rules for store-distributed extensions apply as well:
the filesystem and native permissions are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var checksumCmd = &cobra.Command{
	Use:   "checksum <file>",
	Short: "Compute or verify a package checksum",
	Example: `  extkit checksum weather.pkg
  extkit checksum weather.pkg --algorithm sha256
  extkit checksum weather.pkg --verify 9e107d9d372bb6826bd81d3542a419d6`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksum,
}

var depsCmd = &cobra.Command{
	Use:   "deps <extension-id>",
	Short: "Check a catalog extension's dependencies against installed extensions",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

var (
	validateStoreOrigin bool
	checksumAlgorithm   string
	checksumVerify      string
	depsSource          string
)

func init() {
	validateCmd.Flags().BoolVar(&validateStoreOrigin, "store-origin", false, "apply the rules for store-distributed extensions")

	checksumCmd.Flags().StringVar(&checksumAlgorithm, "algorithm", string(integrity.Default), "digest algorithm")
	checksumCmd.Flags().StringVar(&checksumVerify, "verify", "", "expected hex digest; fail on mismatch")
	_ = checksumCmd.RegisterFlagCompletionFunc("algorithm", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, alg := range integrity.Algorithms() {
			names = append(names, string(alg))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	depsCmd.Flags().StringVar(&depsSource, "source", source.ReservedID, "source id to query")

	rootCmd.AddCommand(validateCmd, checksumCmd, depsCmd)
}

type validateResult struct {
	Valid            bool                       `json:"valid"`
	Name             string                     `json:"name,omitempty"`
	Version          string                     `json:"version,omitempty"`
	Error            string                     `json:"error,omitempty"`
	DependencyIssues []registry.DependencyIssue `json:"dependency_issues,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	res, err := a.ValidateManifestFile(args[0], validateStoreOrigin)
	out := cmd.OutOrStdout()

	if jsonOutput {
		result := validateResult{Valid: err == nil}
		if res != nil && res.Manifest != nil {
			result.Name = res.Manifest.Name
			result.Version = res.Manifest.Version
			result.DependencyIssues = res.DependencyIssues
		}
		if err != nil {
			result.Error = err.Error()
		}
		if encErr := writeJSON(out, result); encErr != nil {
			return encErr
		}
		return err
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "✓ %s %s is valid\n", res.Manifest.Name, res.Manifest.Version)
	for _, issue := range res.DependencyIssues {
		_, _ = fmt.Fprintf(out, "⚠ dependency %s\n", issue)
	}
	return nil
}

func runChecksum(cmd *cobra.Command, args []string) error {
	alg, err := integrity.ParseAlgorithm(checksumAlgorithm)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0]) //nolint:gosec // path is user-provided
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if checksumVerify != "" {
		if err := integrity.Verify(alg, data, strings.TrimSpace(checksumVerify)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "✓ %s checksum matches\n", alg)
		return nil
	}

	digest, err := integrity.Hex(alg, data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s  %s\n", digest, args[0])
	return nil
}

func runDeps(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateExtensionID(args[0]); err != nil {
		return err
	}
	if err := validation.ValidateSourceID(depsSource); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	d, err := a.Details(cmd.Context(), depsSource, args[0])
	if err != nil {
		return err
	}
	issues := a.CheckDependencies(d.Dependencies)

	out := cmd.OutOrStdout()
	if jsonOutput {
		if issues == nil {
			issues = []registry.DependencyIssue{}
		}
		return writeJSON(out, issues)
	}
	if len(d.Dependencies) == 0 {
		_, _ = fmt.Fprintf(out, "%s has no dependencies.\n", d.ID)
		return nil
	}
	if len(issues) == 0 {
		_, _ = fmt.Fprintf(out, "✓ All %d dependencies of %s are satisfied.\n", len(d.Dependencies), d.ID)
		return nil
	}
	for _, issue := range issues {
		_, _ = fmt.Fprintf(out, "✗ %s\n", issue)
	}
	return fmt.Errorf("%d unmet dependencies", len(issues))
}

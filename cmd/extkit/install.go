package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/felixgeelhaar/extkit/internal/domain/install"
	"github.com/felixgeelhaar/extkit/internal/validation"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <extension-id>",
	Short: "Install an extension from a trusted source",
	Long: `Install an extension after verifying its manifest and package checksum.

The workflow runs: Resolve → Fetch manifest → Download → Validate → Register.
Nothing is registered unless every stage succeeds.`,
	Example: `  extkit install weather-widget
  extkit install retro-theme --source community --disabled`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <extension-id>",
	Short: "Remove an installed extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed extensions",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var enableCmd = &cobra.Command{
	Use:   "enable <extension-id>",
	Short: "Enable an installed extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setExtensionEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <extension-id>",
	Short: "Disable an installed extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setExtensionEnabled(cmd, args[0], false)
	},
}

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List installed extensions with newer catalog versions",
	Args:  cobra.NoArgs,
	RunE:  runOutdated,
}

var (
	installSource   string
	installDisabled bool
	listEnabledOnly bool
)

func init() {
	installCmd.Flags().StringVar(&installSource, "source", "", "source id (default: the official source)")
	installCmd.Flags().BoolVar(&installDisabled, "disabled", false, "register the extension without enabling it")
	listCmd.Flags().BoolVar(&listEnabledOnly, "enabled", false, "only list enabled extensions")

	rootCmd.AddCommand(installCmd, uninstallCmd, listCmd, enableCmd, disableCmd, outdatedCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateExtensionID(args[0]); err != nil {
		return err
	}
	if installSource != "" {
		if err := validation.ValidateSourceID(installSource); err != nil {
			return err
		}
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	report, err := a.Install(cmd.Context(), install.Request{
		SourceID:    installSource,
		ExtensionID: args[0],
		Disabled:    installDisabled,
	})
	out := cmd.OutOrStdout()
	if err != nil {
		if report != nil && report.FailedStage() != "" {
			return fmt.Errorf("install failed while %s: %w", report.FailedStage(), err)
		}
		return err
	}

	if jsonOutput {
		return writeJSON(out, report.Info)
	}
	_, _ = fmt.Fprintf(out, "✓ Installed %s %s from %s\n", report.Info.ID, report.Info.Version, report.SourceID)
	if report.Path != "" {
		_, _ = fmt.Fprintf(out, "  Package: %s\n", report.Path)
	}
	if report.Manifest != nil && len(report.Manifest.Permissions) > 0 {
		_, _ = fmt.Fprintln(out, "  Permissions:")
		for _, p := range a.Permissions(report.Info.ID) {
			mark := "granted"
			if !p.Granted {
				mark = "denied"
			}
			_, _ = fmt.Fprintf(out, "    %s (%s)\n", p.Permission, mark)
		}
	}
	for _, issue := range report.DependencyIssues {
		_, _ = fmt.Fprintf(out, "⚠ dependency %s\n", issue)
	}
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateExtensionID(args[0]); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if err := a.Uninstall(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	exts := a.Installed()
	if listEnabledOnly {
		exts = a.EnabledExtensions()
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, exts)
	}
	if len(exts) == 0 {
		_, _ = fmt.Fprintln(out, "No extensions installed.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tVERSION\tTYPE\tENABLED")
	_, _ = fmt.Fprintln(w, "──\t────\t───────\t────\t───────")
	for _, e := range exts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Version, e.Type, strconv.FormatBool(e.Enabled))
	}
	return w.Flush()
}

func setExtensionEnabled(cmd *cobra.Command, id string, enabled bool) error {
	if err := validation.ValidateExtensionID(id); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if err := a.SetEnabled(cmd.Context(), id, enabled); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Extension %s %s\n", id, enabledWord(enabled))
	return nil
}

func runOutdated(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	updates, err := a.Outdated(cmd.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, outdatedJSON(updates))
	}
	if len(updates) == 0 {
		_, _ = fmt.Fprintln(out, "✓ All extensions are up to date.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EXTENSION\tINSTALLED\tAVAILABLE\tSOURCE")
	_, _ = fmt.Fprintln(w, "─────────\t─────────\t─────────\t──────")
	for _, u := range updates {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Installed, u.Available, u.SourceID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\n%d update(s) available. Run 'extkit install <id>' to upgrade.\n", len(updates))
	return nil
}

type outdatedItem struct {
	ID        string `json:"id"`
	Installed string `json:"installed"`
	Available string `json:"available"`
	Source    string `json:"source"`
}

func outdatedJSON(updates []install.Update) []outdatedItem {
	items := make([]outdatedItem, 0, len(updates))
	for _, u := range updates {
		items = append(items, outdatedItem{ID: u.ID, Installed: u.Installed, Available: u.Available, Source: u.SourceID})
	}
	return items
}

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/validation"
	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:     "source",
	Aliases: []string{"sources"},
	Short:   "Manage trusted extension sources",
	Long: `Manage the catalogs extensions can be installed from.

The official source (id "default") always exists and cannot be removed.
Custom sources must use HTTPS and may not point at local addresses.`,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources by priority",
	Args:  cobra.NoArgs,
	RunE:  runSourceList,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a source",
	Example: `  extkit source add "Community" https://ext.example.org --type community
  extkit source add Mine https://mine.example.org --id mine --priority 10`,
	Args: cobra.ExactArgs(2),
	RunE: runSourceAdd,
}

var sourceUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a source's name, URL, type or priority",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceUpdate,
}

var sourceRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a source",
	Args:    cobra.ExactArgs(1),
	RunE:    runSourceRemove,
}

var sourceEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], true)
	},
}

var sourceDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], false)
	},
}

var (
	sourceID       string
	sourceType     string
	sourcePriority int
	sourceDisabled bool

	updateName     string
	updateURL      string
	updateType     string
	updatePriority int
)

func init() {
	sourceAddCmd.Flags().StringVar(&sourceID, "id", "", "source id (default: random UUID)")
	sourceAddCmd.Flags().StringVar(&sourceType, "type", "custom", "source type: official, community or custom")
	sourceAddCmd.Flags().IntVar(&sourcePriority, "priority", 100, "priority, lower is consulted first")
	sourceAddCmd.Flags().BoolVar(&sourceDisabled, "disabled", false, "add the source disabled")

	sourceUpdateCmd.Flags().StringVar(&updateName, "name", "", "new display name")
	sourceUpdateCmd.Flags().StringVar(&updateURL, "url", "", "new base URL")
	sourceUpdateCmd.Flags().StringVar(&updateType, "type", "", "new source type")
	sourceUpdateCmd.Flags().IntVar(&updatePriority, "priority", 0, "new priority")

	sourceCmd.AddCommand(sourceListCmd, sourceAddCmd, sourceUpdateCmd, sourceRemoveCmd, sourceEnableCmd, sourceDisableCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	sources := a.Sources()
	out := cmd.OutOrStdout()

	if jsonOutput {
		return writeJSON(out, sources)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tPRIORITY\tENABLED\tURL")
	_, _ = fmt.Fprintln(w, "──\t────\t────\t────────\t───────\t───")
	for _, s := range sources {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.Name, s.Type, s.Priority, strconv.FormatBool(s.Enabled), s.BaseURL)
	}
	return w.Flush()
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if sourceID != "" {
		if err := validation.ValidateSourceID(sourceID); err != nil {
			return err
		}
	}
	typ, err := source.ParseType(sourceType)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	added, err := a.AddSource(cmd.Context(), source.Source{
		ID:       sourceID,
		Name:     args[0],
		Type:     typ,
		BaseURL:  args[1],
		Enabled:  !sourceDisabled,
		Priority: sourcePriority,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), added)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added source %s (%s)\n", added.ID, added.Name)
	return nil
}

func runSourceUpdate(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateSourceID(args[0]); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	s, err := a.Source(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		s.Name = updateName
	}
	if flags.Changed("url") {
		s.BaseURL = updateURL
	}
	if flags.Changed("type") {
		typ, err := source.ParseType(updateType)
		if err != nil {
			return err
		}
		s.Type = typ
	}
	if flags.Changed("priority") {
		s.Priority = updatePriority
	}

	if err := a.UpdateSource(cmd.Context(), s); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated source %s\n", s.ID)
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateSourceID(args[0]); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if err := a.RemoveSource(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s\n", args[0])
	return nil
}

func setSourceEnabled(cmd *cobra.Command, id string, enabled bool) error {
	if err := validation.ValidateSourceID(id); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if err := a.SetSourceEnabled(cmd.Context(), id, enabled); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Source %s %s\n", id, enabledWord(enabled))
	return nil
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

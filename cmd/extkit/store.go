package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/felixgeelhaar/extkit/internal/app"
	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/felixgeelhaar/extkit/internal/validation"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Browse extension catalogs",
}

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search extension catalogs",
	Long: `Search the catalogs of every enabled source, or of one source with --source.

Results are grouped by source in priority order.`,
	Example: `  extkit store search weather
  extkit store search --type data_source --tag metadata --sort rating
  extkit store search --source community --page 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var infoCmd = &cobra.Command{
	Use:   "info <extension-id>",
	Short: "Show catalog details for an extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var (
	searchSource string
	searchType   string
	searchTags   []string
	searchSort   string
	searchPage   int
	searchLimit  int
	infoSource   string
)

func init() {
	searchCmd.Flags().StringVar(&searchSource, "source", "", "only query this source id")
	searchCmd.Flags().StringVar(&searchType, "type", "", "extension type: theme, data_source or game_library")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "filter by tag (repeatable)")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort by name, downloads, rating or newest")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "result page, starting at 1")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "results per page (default: store.page_size)")

	_ = searchCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, t := range extension.Types() {
			names = append(names, t.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = searchCmd.RegisterFlagCompletionFunc("sort", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"name", "downloads", "rating", "newest"}, cobra.ShellCompDirectiveNoFileComp
	})

	infoCmd.Flags().StringVar(&infoSource, "source", source.ReservedID, "source id to query")

	storeCmd.AddCommand(searchCmd, infoCmd)
	rootCmd.AddCommand(storeCmd)
}

// buildSearchRequest turns flags and the optional term into a request.
func buildSearchRequest(args []string) (app.SearchRequest, error) {
	req := app.SearchRequest{
		SourceID: searchSource,
		Page:     searchPage,
		Limit:    searchLimit,
	}
	if len(args) == 1 {
		req.Filters.Search = args[0]
	}
	if err := validation.ValidateSearch(req.Filters.Search); err != nil {
		return req, err
	}
	if req.SourceID != "" {
		if err := validation.ValidateSourceID(req.SourceID); err != nil {
			return req, err
		}
	}
	for _, tag := range searchTags {
		if err := validation.ValidateTag(tag); err != nil {
			return req, err
		}
	}
	req.Filters.Tags = searchTags

	if searchType != "" {
		req.Filters = req.Filters.WithType(extension.ParseType(searchType))
	}
	if searchSort != "" {
		sortOpt, err := store.ParseSortOption(searchSort)
		if err != nil {
			return req, err
		}
		req.Sort = sortOpt
	}
	return req, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	req, err := buildSearchRequest(args)
	if err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	results, err := a.Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, searchJSON(results))
	}
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No extensions found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tID\tVERSION\tTYPE\tDOWNLOADS\tRATING\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "──────\t──\t───────\t────\t─────────\t──────\t───────────")
	for _, r := range results {
		e := r.Extension
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1f\t%s\n",
			r.SourceID, e.ID, e.Version, e.Type.DisplayName(), e.DownloadCount, e.Rating, truncate(e.Description, 48))
	}
	return w.Flush()
}

type searchResultJSON struct {
	Source string `json:"source"`
	store.Extension
}

func searchJSON(results []app.SearchResult) []searchResultJSON {
	out := make([]searchResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultJSON{Source: r.SourceID, Extension: r.Extension})
	}
	return out
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateExtensionID(args[0]); err != nil {
		return err
	}
	if err := validation.ValidateSourceID(infoSource); err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	d, err := a.Details(cmd.Context(), infoSource, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, d)
	}

	_, _ = fmt.Fprintf(out, "%s %s\n", d.Name, d.Version)
	_, _ = fmt.Fprintf(out, "  ID:        %s\n", d.ID)
	_, _ = fmt.Fprintf(out, "  Type:      %s\n", d.Type.DisplayName())
	if d.Author != "" {
		_, _ = fmt.Fprintf(out, "  Author:    %s\n", d.Author)
	}
	_, _ = fmt.Fprintf(out, "  Downloads: %d\n", d.DownloadCount)
	_, _ = fmt.Fprintf(out, "  Rating:    %.1f\n", d.Rating)
	if len(d.Tags) > 0 {
		_, _ = fmt.Fprintf(out, "  Tags:      %s\n", strings.Join(d.Tags, ", "))
	}
	if d.Checksum != "" {
		_, _ = fmt.Fprintf(out, "  Checksum:  %s\n", d.Checksum)
	}
	if len(d.Dependencies) > 0 {
		names := make([]string, 0, len(d.Dependencies))
		for name := range d.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		_, _ = fmt.Fprintln(out, "  Dependencies:")
		for _, name := range names {
			_, _ = fmt.Fprintf(out, "    %s %s\n", name, d.Dependencies[name])
		}
	}
	if d.Description != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", d.Description)
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

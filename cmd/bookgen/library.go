// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookgen/internal/library"
	"github.com/pdiddy/bookgen/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the library of generated books (index, list, search, export)",
	Long: `Library manages a local SQLite index over previously generated book
directories. Use subcommands to index books, list them, search their
sections full-text, or export the whole library.`,
}

// --- index subcommand ---

var libraryIndexCmd = &cobra.Command{
	Use:   "index [dirs...]",
	Short: "Index generated book directories into the library",
	Long: `Index scans the given directories (book directories, or parents whose
children are book directories) and ingests metadata and sections into
the library database with FTS5 indexing. Unchanged books are skipped on
subsequent runs. With no arguments the current directory is scanned.`,
	RunE: runLibraryIndex,
}

func runLibraryIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), args, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d book(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- list subcommand ---

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed books",
	RunE:  runLibraryList,
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	books, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	}

	if len(books) == 0 {
		fmt.Println("No books indexed.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-20s  %8s  %8s\n",
		"ID", "Title", "Author", "Chapters", "Sections")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, b := range books {
		fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-20s  %8d  %8d\n",
			clip(b.ID, 36), clip(b.Title, 40), clip(b.Author, 20), b.Chapters, b.Sections)
	}
	fmt.Fprintf(os.Stdout, "\n%d book(s)\n", len(books))
	return nil
}

// --- search subcommand ---

var librarySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed sections full-text",
	Long: `Search runs an FTS5 full-text query over every indexed section,
optionally restricted to one book with --book. Results are ranked by
relevance.`,
	RunE: runLibrarySearch,
}

func runLibrarySearch(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := library.QueryOptions{
		Query: strings.Join(args, " "),
	}
	opts.BookID, _ = cmd.Flags().GetString("book")
	opts.MaxResults, _ = cmd.Flags().GetInt("max-results")

	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query or --book")
	}

	results, err := store.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-30s  %-8s  %-25s  %s\n",
		"Rank", "Book", "Chapter", "Section", "Content")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-8d  %-25s  %s\n",
			i+1, clip(r.BookTitle, 30), r.Chapter, clip(r.SectionTitle, 25), clip(r.Content, 45))
	}
	fmt.Fprintf(os.Stdout, "\n%d result(s)\n", len(results))
	return nil
}

// --- export subcommand ---

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library to YAML or JSON",
	RunE:  runLibraryExport,
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		return store.ExportYAML(cmd.Context())
	case "json":
		return store.ExportJSON(cmd.Context())
	default:
		return fmt.Errorf("unknown format %q: use yaml or json", format)
	}
}

func libraryConfig(cmd *cobra.Command) types.LibraryConfig {
	return types.LibraryConfig{
		LibraryDir: stringSetting(cmd, "library-dir", "library.library_dir"),
		MaxResults: intSetting(cmd, "max-results", "library.max_results"),
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	for _, c := range []*cobra.Command{libraryIndexCmd, libraryListCmd, librarySearchCmd, libraryExportCmd} {
		c.Flags().String("library-dir", "library", "base directory for the library (contains index/)")
		c.Flags().Int("max-results", 20, "maximum number of search results")
	}
	libraryListCmd.Flags().Bool("json", false, "output as JSON")
	librarySearchCmd.Flags().Bool("json", false, "output as JSON")
	librarySearchCmd.Flags().String("book", "", "restrict results to one book ID")
	libraryExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	libraryCmd.AddCommand(libraryIndexCmd, libraryListCmd, librarySearchCmd, libraryExportCmd)
	rootCmd.AddCommand(libraryCmd)
}

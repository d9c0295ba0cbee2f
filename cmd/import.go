package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/larder/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Import recipe documents (.toml, .yaml)",
	Long: `Imports recipe documents. A directory argument imports every document
directly inside it. Documents are parsed concurrently and written one
recipe per transaction; a document that does not fit stores nothing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Int("workers", 0, "parallel parsers (default from config)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = a.cfg.Import.Workers
	}

	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := importer.DocumentFiles(arg)
		if err != nil {
			return err
		}
		paths = append(paths, files...)
	}

	failed := importAll(cmd.Context(), a, paths, workers)
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed to import", failed, len(paths))
	}
	return nil
}

// importAll parses and imports paths, reporting each result. It returns
// the number of failures.
func importAll(ctx context.Context, a *app, paths []string, workers int) int {
	docs, err := importer.LoadFiles(ctx, paths, workers)
	if err != nil {
		a.status.Error(err.Error())
		return len(paths)
	}

	im := importer.New(a.store,
		importer.WithLogger(a.log),
		importer.WithEvents(a.events),
		importer.WithMetrics(a.metrics),
	)
	failed := 0
	for _, doc := range docs {
		r, err := im.Import(ctx, doc)
		if err != nil {
			failed++
		}
		a.status.Imported(doc.Source, r, err)
	}
	return failed
}

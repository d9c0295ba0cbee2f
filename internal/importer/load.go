package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DocumentFiles lists the recipe documents directly inside dir, sorted by
// name.
func DocumentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadFiles parses documents with at most workers files in flight. The
// result keeps the order of paths. The first failure cancels the rest.
func LoadFiles(ctx context.Context, paths []string, workers int) ([]*Document, error) {
	if workers < 1 {
		workers = 1
	}
	docs := make([]*Document, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := ParseFile(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadDir parses every document in dir.
func LoadDir(ctx context.Context, dir string, workers int) ([]*Document, error) {
	paths, err := DocumentFiles(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, paths, workers)
}

package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ppiankov/lineage/internal/worker"
)

// File is one archive file found on disk
type File struct {
	Path string
	Hash string
	Size int64
}

// CollectFiles walks root for files with one of the configured extensions,
// skipping the configured directory names, and hashes them in parallel.
// Files are returned sorted by path; unreadable files are dropped.
func CollectFiles(ctx context.Context, root string, extensions, skipDirs []string) ([]File, []error, error) {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[strings.ToLower(d)] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skip[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if len(exts) == 0 || exts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}

	results, err := worker.HashFiles(ctx, paths, runtime.NumCPU())
	if err != nil {
		return nil, nil, err
	}

	files := make([]File, 0, len(results))
	var problems []error
	for _, r := range results {
		if r.Error != nil {
			problems = append(problems, r.Error)
			continue
		}
		files = append(files, File{Path: r.Path, Hash: r.Hash, Size: r.Size})
	}
	return files, problems, nil
}

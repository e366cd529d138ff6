package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
)

// HashJob computes the SHA-256 of one file
type HashJob struct {
	Path string
}

// HashResult is the digest of one file, or the error reading it
type HashResult struct {
	Path  string
	Hash  string
	Size  int64
	Error error
}

// GetError returns the error from the hash result
func (r *HashResult) GetError() error {
	return r.Error
}

// Execute hashes the file
func (j *HashJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &HashResult{Path: j.Path, Error: err}
	}
	hash, size, err := HashFile(j.Path)
	return &HashResult{Path: j.Path, Hash: hash, Size: size, Error: err}
}

// HashFile returns the hex SHA-256 and size of a file
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashFiles hashes paths on a pool of workers. Results come back sorted by
// path regardless of completion order. A cancelled context stops submission
// and returns the context error.
func HashFiles(ctx context.Context, paths []string, workers int) ([]*HashResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	go func() {
		for _, p := range paths {
			if !pool.Submit(&HashJob{Path: p}) {
				break
			}
		}
		pool.Close()
	}()

	results := make([]*HashResult, 0, len(paths))
	for r := range pool.Results() {
		results = append(results, r.(*HashResult))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}

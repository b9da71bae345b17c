package worker

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ndacheck/ndacheck/internal/models"
)

// Reviewer reviews one document on disk
type Reviewer interface {
	File(ctx context.Context, path string) (*models.Review, error)
}

// ReviewJob represents one document review
type ReviewJob struct {
	Path     string
	Reviewer Reviewer
}

// Execute runs the review
func (j *ReviewJob) Execute(ctx context.Context) Result {
	rev, err := j.Reviewer.File(ctx, j.Path)
	return &ReviewResult{Path: j.Path, Review: rev, Error: err}
}

// ReviewResult represents the result of a review job
type ReviewResult struct {
	Path   string
	Review *models.Review
	Error  error
}

// GetError returns the error from the review
func (r *ReviewResult) GetError() error {
	return r.Error
}

// BatchProcessor reviews many documents concurrently
type BatchProcessor struct {
	reviewer    Reviewer
	concurrency int
	opts        []Option
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(reviewer Reviewer, concurrency int, opts ...Option) *BatchProcessor {
	return &BatchProcessor{
		reviewer:    reviewer,
		concurrency: concurrency,
		opts:        opts,
	}
}

// ProcessPaths reviews every path and returns results in input order
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*ReviewResult {
	if len(paths) == 0 {
		return []*ReviewResult{}
	}

	pool := NewPool(ctx, b.concurrency, b.opts...)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&ReviewJob{Path: path, Reviewer: b.reviewer})
	}

	results := pool.Wait()

	out := make([]*ReviewResult, len(results))
	for i, result := range results {
		if rr, ok := result.(*ReviewResult); ok {
			out[i] = rr
			continue
		}
		out[i] = &ReviewResult{Path: paths[i], Error: result.GetError()}
	}
	return out
}

// ExpandInput turns a directory or a list file into document paths. A
// directory is walked recursively for files accepted by supported.
func ExpandInput(arg string, supported func(string) bool) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", arg, err)
	}
	if info.IsDir() {
		return CollectDocuments(arg, supported)
	}
	return ReadPathsFromFile(arg)
}

// CollectDocuments walks dir and returns matching files in lexical order,
// skipping hidden files and directories.
func CollectDocuments(dir string, supported func(string) bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && (supported == nil || supported(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadPathsFromFile reads document paths from a file (one per line).
// Relative entries are resolved against the list file's directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

// Summary counts batch outcomes
type Summary struct {
	Documents    int
	Failed       int
	WithFindings int
}

// Summarize counts failures and documents with findings
func Summarize(results []*ReviewResult) Summary {
	s := Summary{Documents: len(results)}
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed++
		case r.Review != nil && !r.Review.Findings.Empty():
			s.WithFindings++
		}
	}
	return s
}

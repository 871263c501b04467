package worker

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/clausecheck/clausecheck/internal/model"
)

// conversionService is the limiter key for paced document conversions
const conversionService = "convert"

// Runner checks a single document against the loaded ruleset
type Runner interface {
	CheckFile(ctx context.Context, path string) (*model.Report, error)
}

// CheckJob analyzes one document
type CheckJob struct {
	Path    string
	Runner  Runner
	limiter *Limiter
}

// Execute runs the compliance check for the job's document
func (j *CheckJob) Execute(ctx context.Context) Result {
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx, conversionService); err != nil {
			return &DocumentResult{Path: j.Path, Error: err}
		}
	}
	report, err := j.Runner.CheckFile(ctx, j.Path)
	if err != nil {
		return &DocumentResult{Path: j.Path, Error: err}
	}
	return &DocumentResult{Path: j.Path, Report: report}
}

// DocumentResult is the outcome of checking one document
type DocumentResult struct {
	Path   string
	Report *model.Report
	Error  error
}

// Err returns the error from the document result
func (r *DocumentResult) Err() error {
	return r.Error
}

// BatchProcessor checks multiple documents concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor. A positive rps paces
// document submissions so the conversion service is not flooded.
func NewBatchProcessor(runner Runner, concurrency int, rps float64, burst int) *BatchProcessor {
	var limiter *Limiter
	if rps > 0 {
		limiter = NewLimiter(rps, burst)
	}
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessPaths checks the given documents concurrently
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*DocumentResult {
	if len(paths) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&CheckJob{
			Path:    path,
			Runner:  b.runner,
			limiter: b.limiter,
		})
	}

	results := pool.Wait()

	documentResults := make([]*DocumentResult, len(results))
	for i, result := range results {
		documentResults[i] = result.(*DocumentResult)
	}

	return documentResults
}

// ProcessManifest reads document paths from a manifest file and checks them
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifestPath string) ([]*DocumentResult, error) {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ReadManifest reads document paths from a file (one per line).
// Empty lines and #-comments are skipped; duplicates are dropped.
func ReadManifest(manifestPath string) ([]string, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
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

// supportedExtensions are the document types the conversion service accepts
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".md":   true,
	".txt":  true,
}

// CollectDocuments walks a directory and returns the supported documents in it.
// A path to a regular file is returned as-is.
func CollectDocuments(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return paths, nil
}

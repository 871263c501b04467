package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clausecheck/clausecheck/internal/pipeline"
	"github.com/clausecheck/clausecheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchRate    float64
	batchBurst   int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest-or-dir>",
	Short: "Check multiple documents against a ruleset in parallel",
	Long: `Batch processes multiple documents concurrently:
- Read document paths from a manifest file (one per line), or walk a directory
- Check documents in parallel with configurable worker count
- Optionally pace conversions so the conversion service is not flooded
- Generate individual reports for each document

Example:
  clausecheck batch contracts.txt --rules rules.yaml
  clausecheck batch ./contracts --rules rules.yaml --concurrency 8 --output-dir ./reports
  clausecheck batch contracts.txt --rules rules.yaml --rate 2`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&rulesPath, "rules", "rules.yaml", "rules YAML file")

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clausecheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&batchRate, "rate", 0, "max document submissions per second (0: unlimited)")
	batchCmd.Flags().IntVar(&batchBurst, "burst", 5, "burst size for the submission rate limit")

	// Conversion flags
	batchCmd.Flags().StringVar(&converterURL, "converter", "", "document conversion service URL (empty: treat inputs as markdown)")
	batchCmd.Flags().Int64Var(&maxBytes, "max-bytes", 20_000_000, "max document bytes to read")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the embedding cache")
	batchCmd.Flags().BoolVar(&noCritics, "no-critics", false, "disable quality gates")
	batchCmd.Flags().BoolVar(&noStrict, "no-strict", false, "keep unevidenced verdicts instead of downgrading to unknown")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().BoolVar(&embeddings, "embeddings", false, "blend embedding similarity into retrieval")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the model judge for inconclusive rules")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "model provider (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "model name (provider default when empty)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.BatchWorkers = concurrency

	ruleList, err := loadRules(rulesPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:       %s\n", input)
	fmt.Fprintf(os.Stderr, "  Rules:       %d\n", len(ruleList))
	fmt.Fprintf(os.Stderr, "  Workers:     %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:  %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:     %v\n", batchTimeout)
	if llmEnabled {
		fmt.Fprintf(os.Stderr, "  Judge:       %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(cfg, ruleList)
	processor := worker.NewBatchProcessor(p, concurrency, batchRate, batchBurst)

	paths, err := collectInputs(input)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Checking %d documents with %d workers...\n\n", len(paths), concurrency)

	results := processor.ProcessPaths(ctx, paths)

	successCount := 0
	failureCount := 0
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", result.Path, result.Error)
			continue
		}

		successCount++

		slug := sanitizeFilename(result.Report.Document)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: write Markdown: %v\n", result.Path, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "OK   %s (%d rules, %d unknown)\n", result.Report.Document, result.Report.RulesTotal, result.Report.Unknown)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// collectInputs resolves the batch input: a directory is walked for supported
// documents, anything else is read as a manifest of paths
func collectInputs(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		paths, err := worker.CollectDocuments(input)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no supported documents under %s", input)
		}
		return paths, nil
	}
	paths, err := worker.ReadManifest(input)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("manifest %s lists no documents", input)
	}
	return paths, nil
}

// sanitizeFilename sanitizes a document name for use as a report filename
func sanitizeFilename(s string) string {
	s = filepath.Base(filepath.Clean(s))
	if ext := filepath.Ext(s); ext != "" {
		s = strings.TrimSuffix(s, ext)
	}

	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
	)
	s = replacer.Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." {
		s = "report"
	}
	return s
}

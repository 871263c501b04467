package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clausecheck/clausecheck/internal/model"
	"github.com/clausecheck/clausecheck/internal/pipeline"
	"github.com/clausecheck/clausecheck/internal/rules"
)

var (
	rulesPath    string
	outJSON      string
	outYAML      string
	outMD        string
	timeout      time.Duration
	converterURL string
	maxBytes     int64
	noCache      bool
	noCritics    bool
	noStrict     bool
	noFooter     bool
	llmEnabled   bool
	llmProvider  string
	llmModel     string
	embeddings   bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <document>",
	Short: "Check a single document against a compliance ruleset",
	Long: `Check analyzes one contract or policy document:
- Convert the document to page-anchored markdown
- Segment it into sentences with page and section metadata
- Retrieve candidate excerpts per rule (BM25, optionally hybrid)
- Resolve rules deterministically where patterns suffice
- Judge the rest with a model, if one is configured
- Validate that every definite verdict carries anchored citations

Example:
  clausecheck check contract.pdf --rules rules.yaml
  clausecheck check contract.pdf --rules rules.yaml --json report.json --md report.md
  clausecheck check https://example.com/msa.pdf --rules rules.yaml --llm ollama --llm-model llama3.1:8b`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&rulesPath, "rules", "rules.yaml", "rules YAML file")

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	checkCmd.Flags().StringVar(&outYAML, "yaml", "", "output YAML path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Conversion flags
	checkCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall check timeout")
	checkCmd.Flags().StringVar(&converterURL, "converter", "", "document conversion service URL (empty: treat input as markdown)")
	checkCmd.Flags().Int64Var(&maxBytes, "max-bytes", 20_000_000, "max document bytes to read")

	// Analysis flags
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the embedding cache")
	checkCmd.Flags().BoolVar(&noCritics, "no-critics", false, "disable quality gates")
	checkCmd.Flags().BoolVar(&noStrict, "no-strict", false, "keep unevidenced verdicts instead of downgrading to unknown")
	checkCmd.Flags().BoolVar(&embeddings, "embeddings", false, "blend embedding similarity into retrieval")

	// LLM flags
	checkCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the model judge for inconclusive rules")
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "model provider (openai, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "", "model name (provider default when empty)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	document := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	ruleList, err := loadRules(rulesPath)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", document)
		fmt.Fprintf(os.Stderr, "Rules: %d\n", len(ruleList))
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, ruleList)

	report, err := p.CheckFile(ctx, document)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzed %d pages, %d sentences\n", report.Pages, report.Sentences)
		fmt.Fprintf(os.Stderr, "Deterministic: %d conclusive, model judged: %d\n", report.Conclusive, report.ModelJudged)
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(report, outJSON, outYAML, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}

// buildConfig assembles the pipeline configuration from flags and environment
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Converter.BaseURL = converterURL
	if cfg.Converter.BaseURL == "" {
		cfg.Converter.BaseURL = os.Getenv("CLAUSECHECK_CONVERTER_URL")
	}
	cfg.Converter.MaxBodyBytes = maxBytes
	cfg.Cache.Enabled = !noCache
	cfg.Critics.Enabled = !noCritics
	cfg.Critics.StrictMode = !noStrict
	cfg.Retrieval.UseEmbeddings = embeddings
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}

		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		default:
			return nil, fmt.Errorf("unsupported model provider: %s", llmProvider)
		}
	}

	if embeddings && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// loadRules loads the ruleset and reports per-rule issues on stderr
func loadRules(path string) ([]model.Rule, error) {
	ruleList, issues, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", issue)
	}
	if len(ruleList) == 0 {
		return nil, fmt.Errorf("no usable rules in %s", path)
	}
	return ruleList, nil
}

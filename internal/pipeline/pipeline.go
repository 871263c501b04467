package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"github.com/clausecheck/clausecheck/internal/cache"
	"github.com/clausecheck/clausecheck/internal/citation"
	"github.com/clausecheck/clausecheck/internal/convert"
	"github.com/clausecheck/clausecheck/internal/critic"
	"github.com/clausecheck/clausecheck/internal/deterministic"
	"github.com/clausecheck/clausecheck/internal/evidence"
	"github.com/clausecheck/clausecheck/internal/judge"
	"github.com/clausecheck/clausecheck/internal/model"
	"github.com/clausecheck/clausecheck/internal/retrieval"
	"github.com/clausecheck/clausecheck/internal/score"
	"github.com/clausecheck/clausecheck/internal/segment"
)

// heuristicLinesPerPage is used when a document arrives without page anchors
const heuristicLinesPerPage = 40

// Pipeline orchestrates the complete compliance analysis of one document:
// load, convert, segment, retrieve, check, judge, cite, validate, and gate.
type Pipeline struct {
	loader       *Loader
	converter    *convert.Client
	segmenter    *segment.Segmenter
	retriever    *retrieval.Engine
	checker      *deterministic.Checker
	judge        *judge.Judge
	providerName string
	manager      *citation.Manager
	validator    *evidence.Validator
	scorer       *score.Scorer
	renderer     *Renderer
	rules        []model.Rule
	config       *model.Config
}

// NewPipeline creates a pipeline with the given configuration and ruleset
func NewPipeline(cfg *model.Config, ruleList []model.Rule) *Pipeline {
	var modelJudge *judge.Judge
	providerName := ""
	if cfg.LLM.Provider != "" {
		provider, err := judge.NewProvider(cfg.LLM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: model judge disabled: %v\n", err)
		} else if provider != nil {
			modelJudge = judge.NewJudge(provider, cfg.LLM.MaxRetries, cfg.LLM.RatePerSecond)
			providerName = provider.Name()
		}
	}

	var embedder retrieval.Embedder
	if cfg.Retrieval.UseEmbeddings {
		e, err := retrieval.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.Retrieval.EmbeddingURL, cfg.Retrieval.EmbeddingModel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: embeddings disabled: %v\n", err)
		} else {
			embedder = e
		}
	}

	var embedCache cache.Cache
	if cfg.Cache.Enabled {
		embedCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	manager := citation.NewManager()

	return &Pipeline{
		loader:       NewLoader(cfg.Converter.Timeout, cfg.Converter.MaxBodyBytes),
		converter:    convert.NewClient(cfg.Converter),
		segmenter:    segment.NewSegmenter(),
		retriever:    retrieval.NewEngine(cfg.Retrieval, embedder, embedCache),
		checker:      deterministic.NewChecker(0),
		judge:        modelJudge,
		providerName: providerName,
		manager:      manager,
		validator:    evidence.NewValidator(cfg.Critics.StrictMode, manager),
		scorer:       score.NewScorer(),
		renderer:     NewRenderer(cfg.Output.IncludeFooter),
		rules:        ruleList,
		config:       cfg,
	}
}

// CheckFile loads and analyzes a single document (local path or URL)
func (p *Pipeline) CheckFile(ctx context.Context, ref string) (*model.Report, error) {
	src, err := p.loader.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	text, conversionRuns, err := p.toMarkdown(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	report, err := p.Analyze(ctx, src.Name, text)
	if err != nil {
		return nil, err
	}
	report.CriticRuns = append(conversionRuns, report.CriticRuns...)
	return report, nil
}

// toMarkdown turns the loaded document into page-anchored markdown, running
// the conversion quality gate with bounded reruns.
func (p *Pipeline) toMarkdown(ctx context.Context, src *Source) (string, []model.CriticRun, error) {
	ext := strings.ToLower(filepath.Ext(src.Name))
	passthrough := ext == ".md" || ext == ".txt" || p.config.Converter.BaseURL == ""

	var text string
	if passthrough {
		text = string(src.Content)
		if segment.LooksLikeHTML(text) {
			if visible, err := segment.ExtractVisibleText(text); err == nil {
				text = visible
			}
		}
	} else {
		result, err := p.converter.Convert(ctx, src.Name, src.Content)
		if err != nil {
			return "", nil, err
		}
		text = result.Markdown
	}

	if !p.config.Critics.Enabled {
		return text, nil, nil
	}

	var runs []model.CriticRun
	gate := critic.NewConversionGate(p.config.Critics.MaxReruns, p.config.Critics.StrictMode)
	for {
		res := gate.Run(critic.Input{DocumentText: text})
		runs = append(runs, critic.Summarize(res))
		if !res.NeedsRerun {
			break
		}
		if res.RetryParams["force_ocr"] == "true" && !passthrough {
			result, err := p.converter.Convert(ctx, src.Name, src.Content)
			if err == nil && result.Markdown != "" {
				text = result.Markdown
			}
		}
		if !anchor.Build(text).Anchored() {
			text = anchor.AddHeuristicAnchors(text, heuristicLinesPerPage)
		}
	}
	return text, runs, nil
}

// runOptions carry the knobs a quality-gate rerun may adjust
type runOptions struct {
	minCitationConfidence float64
}

// Analyze runs the full rule analysis over already-converted document text
func (p *Pipeline) Analyze(ctx context.Context, docName, documentText string) (*model.Report, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, fmt.Errorf("document %s has no text", docName)
	}

	critics := p.config.Critics
	var criticRuns []model.CriticRun

	sentences := p.segmenter.Segment(documentText)
	if critics.Enabled {
		gate := critic.NewCoverageGate(critics.MaxReruns, critics.StrictMode)
		for {
			res := gate.Run(critic.Input{DocumentText: documentText, Sentences: sentences})
			criticRuns = append(criticRuns, critic.Summarize(res))
			if !res.NeedsRerun {
				break
			}
			if res.RetryParams["heuristic_anchors"] == "true" {
				documentText = anchor.AddHeuristicAnchors(documentText, heuristicLinesPerPage)
				sentences = p.segmenter.Segment(documentText)
			}
		}
	}

	index := anchor.Build(documentText)
	if p.config.Output.Verbose {
		for _, w := range index.Warnings() {
			fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", docName, w)
		}
	}
	pageMap := anchor.ExtractPageMap(documentText)

	opts := runOptions{minCitationConfidence: citation.DefaultMinConfidence}
	results := p.checkRules(ctx, documentText, sentences, index, pageMap, opts)

	if critics.Enabled {
		gate := critic.NewCompletenessGate(critics.MaxReruns, critics.StrictMode)
		for {
			res := gate.Run(critic.Input{DocumentText: documentText, Sentences: sentences, Results: results, RulesTotal: p.enabledRules()})
			criticRuns = append(criticRuns, critic.Summarize(res))
			if !res.NeedsRerun {
				break
			}
			if v := res.RetryParams["confidence_threshold"]; v != "" {
				if threshold, err := strconv.ParseFloat(v, 64); err == nil && threshold > 0 {
					opts.minCitationConfidence = threshold
				}
			}
			results = p.checkRules(ctx, documentText, sentences, index, pageMap, opts)
		}

		gate = critic.NewCitationGate(critics.MaxReruns, critics.StrictMode)
		for {
			res := gate.Run(critic.Input{Results: results, RulesTotal: p.enabledRules()})
			criticRuns = append(criticRuns, critic.Summarize(res))
			if !res.NeedsRerun {
				break
			}
			if res.RetryParams["retry_citations"] == "true" {
				p.repairCitations(results, sentences)
			}
		}
	}

	report := &model.Report{
		Document:   docName,
		AnalyzedAt: time.Now().UTC(),
		Pages:      index.Pages(),
		Sentences:  len(sentences),
		Results:    results,
		Score:      p.scorer.Calculate(results, p.enabledRules()),
		CriticRuns: criticRuns,
		RulesTotal: p.enabledRules(),
	}
	for _, r := range results {
		if r.Deterministic != nil && r.Deterministic.IsConclusive {
			report.Conclusive++
		}
		if r.Judgment != nil {
			report.ModelJudged++
		}
		if r.Status == model.StatusUnknown {
			report.Unknown++
		}
	}
	return report, nil
}

func (p *Pipeline) enabledRules() int {
	n := 0
	for _, r := range p.rules {
		if r.Enabled {
			n++
		}
	}
	return n
}

// checkRules evaluates every enabled rule against the document. Each run uses
// a fresh citation arena so citation IDs restart at 1.
func (p *Pipeline) checkRules(ctx context.Context, documentText string, sentences []segment.Sentence, index *anchor.Index, pageMap map[int]int, opts runOptions) []model.ComplianceResult {
	store := citation.NewStore()
	store.RegisterSentences(sentences)
	texts := segment.Texts(sentences)

	var results []model.ComplianceResult
	for _, rule := range p.rules {
		if !rule.Enabled {
			continue
		}
		results = append(results, p.checkRule(ctx, rule, documentText, sentences, texts, index, pageMap, store, opts))
	}
	return results
}

func (p *Pipeline) checkRule(ctx context.Context, rule model.Rule, documentText string, sentences []segment.Sentence, texts []string, index *anchor.Index, pageMap map[int]int, store *citation.Store, opts runOptions) model.ComplianceResult {
	candidates, fallbackUsed := p.retriever.CandidatesForRule(ctx, rule, texts, documentText)

	result := model.ComplianceResult{
		RuleID: rule.RuleID,
		Retrieval: model.RetrievalMeta{
			CandidateCount: len(candidates),
			FallbackUsed:   fallbackUsed,
			HybridUsed:     p.retriever.HybridEnabled(),
		},
	}

	det := p.checker.CheckRule(rule, documentText, texts, pageMap)
	result.Deterministic = &det

	switch {
	case det.IsConclusive:
		result.Status = det.Status
		result.Rationale = det.Rationale
		result.Confidence = det.Confidence
		result.Attribution = map[string]string{"method": "deterministic"}
		result.Citations = citationsFromMatches(store, det)

	case p.judge.Enabled():
		judgment, err := p.judge.Judge(ctx, judge.Request{
			Rule:     rule,
			Excerpts: excerptsFrom(candidates, sentences),
		})
		if err != nil {
			result.Status = model.StatusUnknown
			result.Rationale = fmt.Sprintf("Model judgment failed: %v", err)
			result.Attribution = map[string]string{"method": "model_error"}
			break
		}
		result.Judgment = judgment
		result.Status = judgment.Status
		result.Rationale = judgment.Rationale
		result.Confidence = judgment.Confidence
		if len(judgment.Attribution) > 0 {
			result.Attribution = judgment.Attribution
		} else {
			result.Attribution = map[string]string{"method": "model_judgment", "provider": p.providerName}
		}
		for _, quote := range judgment.Quotes {
			if c := p.manager.CreateCitation(quote.Quote, documentText, -1, index); c != nil {
				result.Citations = append(result.Citations, *c)
			}
		}
		if len(result.Citations) == 0 {
			result.Citations = store.FromAnswer(judgment.Rationale, opts.minCitationConfidence)
		}

	default:
		result.Status = model.StatusUnknown
		result.Rationale = "Deterministic checks were inconclusive and no model judge is configured"
		result.Attribution = map[string]string{"method": "no_judge"}
	}

	p.validator.ValidateComplianceResult(&result, rule, documentText, index)
	p.validator.Enforce(&result, rule)
	return result
}

// citationsFromMatches turns deterministic matches into citations. Positive
// matches evidence compliance; forbidden-keyword matches evidence a
// non-compliant verdict.
func citationsFromMatches(store *citation.Store, det model.DeterministicResult) []model.Citation {
	const maxCitations = 3

	var citations []model.Citation
	for _, m := range det.KeywordMatches {
		confidence := m.Confidence
		if confidence < 0 {
			if det.Status != model.StatusNonCompliant {
				continue
			}
			confidence = -confidence
		}
		citations = append(citations, store.Create(model.CitationDirectQuote, m.Text, "", m.Page, "", confidence))
		if len(citations) >= maxCitations {
			return citations
		}
	}
	for _, m := range det.RegexMatches {
		citations = append(citations, store.Create(model.CitationDirectQuote, m.Text, "", m.Page, "", m.Confidence))
		if len(citations) >= maxCitations {
			break
		}
	}
	return citations
}

// excerptsFrom maps retrieval candidates to judge excerpts with pages
func excerptsFrom(candidates []retrieval.Candidate, sentences []segment.Sentence) []judge.Excerpt {
	excerpts := make([]judge.Excerpt, 0, len(candidates))
	for _, c := range candidates {
		page := 0
		if c.Index >= 0 && c.Index < len(sentences) {
			page = sentences[c.Index].PageNumber
		}
		excerpts = append(excerpts, judge.Excerpt{Text: c.Chunk, Page: page})
	}
	return excerpts
}

// repairCitations re-derives citations for definite verdicts that carry none
func (p *Pipeline) repairCitations(results []model.ComplianceResult, sentences []segment.Sentence) {
	const retryConfidence = 0.5

	store := citation.NewStore()
	store.RegisterSentences(sentences)
	for i := range results {
		if results[i].Status == model.StatusUnknown || len(results[i].Citations) > 0 {
			continue
		}
		if citations := store.FromAnswer(results[i].Rationale, retryConfidence); len(citations) > 0 {
			results[i].Citations = citations
		}
	}
}

// RenderReport renders the report to the configured outputs
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, yamlPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("Wrote JSON: %s\n", jsonPath)
		}
	}

	if yamlPath != "" {
		if err := p.renderer.RenderYAML(report, yamlPath); err != nil {
			return fmt.Errorf("render YAML: %w", err)
		}
		if verbose {
			fmt.Printf("Wrote YAML: %s\n", yamlPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clausecheck/clausecheck/internal/model"
)

// Renderer writes reports as JSON, YAML, and Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RenderYAML writes the report as YAML
func (r *Renderer) RenderYAML(report *model.Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(report)), 0o644)
}

// Markdown renders the report body
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compliance Report: %s\n\n", report.Document)
	fmt.Fprintf(&b, "Analyzed: %s  \n", report.AnalyzedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Pages: %d | Sentences: %d | Rules: %d\n\n", report.Pages, report.Sentences, report.RulesTotal)

	counts := statusCounts(report)
	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Count |\n|---|---|\n")
	for _, s := range []model.Status{model.StatusCompliant, model.StatusNonCompliant, model.StatusNotApplicable, model.StatusUnknown} {
		fmt.Fprintf(&b, "| %s | %d |\n", s, counts[s])
	}
	fmt.Fprintf(&b, "\nCompliance index: %d/100 (%s confidence)  \n", report.Score.Index, report.Score.Confidence)
	fmt.Fprintf(&b, "Deterministic: %d conclusive | Model judged: %d\n\n", report.Conclusive, report.ModelJudged)

	b.WriteString("## Results\n\n")
	for _, res := range report.Results {
		fmt.Fprintf(&b, "### %s — %s\n\n", res.RuleID, strings.ToUpper(string(res.Status)))
		if res.Rationale != "" {
			fmt.Fprintf(&b, "%s\n\n", res.Rationale)
		}
		fmt.Fprintf(&b, "Confidence: %.2f\n\n", res.Confidence)
		if len(res.Citations) > 0 {
			b.WriteString("Evidence:\n\n")
			for _, c := range res.Citations {
				fmt.Fprintf(&b, "- %s (%s, %s)\n", c.Format(200), c.Type, c.Location)
			}
			b.WriteString("\n")
		}
		if res.Validation != nil && !res.Validation.IsValid {
			fmt.Fprintf(&b, "Evidence validation failed: %s\n\n", strings.Join(res.Validation.Errors, "; "))
		}
	}

	if len(report.CriticRuns) > 0 {
		b.WriteString("## Quality Gates\n\n")
		b.WriteString("| Gate | Attempts | Severity | Passed |\n|---|---|---|---|\n")
		for _, run := range report.CriticRuns {
			fmt.Fprintf(&b, "| %s | %d | %s | %v |\n", run.Name, run.Attempts, run.Severity, run.Passed)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\nGenerated by clausecheck\n")
	}
	return b.String()
}

// RenderSummary prints a one-screen summary to stdout
func (r *Renderer) RenderSummary(report *model.Report) {
	counts := statusCounts(report)
	fmt.Printf("\n%s: index %d/100 | %d rules | compliant %d | non_compliant %d | not_applicable %d | unknown %d\n",
		report.Document,
		report.Score.Index,
		report.RulesTotal,
		counts[model.StatusCompliant],
		counts[model.StatusNonCompliant],
		counts[model.StatusNotApplicable],
		counts[model.StatusUnknown],
	)
	for _, run := range report.CriticRuns {
		if !run.Passed {
			fmt.Printf("  gate %s failed (%s, %d attempts)\n", run.Name, run.Severity, run.Attempts)
		}
	}
}

func statusCounts(report *model.Report) map[model.Status]int {
	counts := make(map[model.Status]int, 4)
	for _, res := range report.Results {
		counts[res.Status]++
	}
	return counts
}

package critic

import (
	"fmt"
	"os"

	"github.com/clausecheck/clausecheck/internal/model"
	"github.com/clausecheck/clausecheck/internal/segment"
)

// Severity ranks how bad a finding is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Issue is one typed finding from a quality gate
type Issue struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Input is the analysis state a gate inspects. Stages read only the fields
// they care about.
type Input struct {
	DocumentText string
	Sentences    []segment.Sentence
	Results      []model.ComplianceResult
	RulesTotal   int
}

// Result is the outcome of one gate invocation
type Result struct {
	Name            string            `json:"name"`
	Passed          bool              `json:"passed"`
	Severity        Severity          `json:"severity"`
	Issues          []Issue           `json:"issues,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	NeedsRerun      bool              `json:"needs_rerun"`
	RetryParams     map[string]string `json:"retry_params,omitempty"`
	Attempts        int               `json:"attempts"`
}

// Policy controls how issues roll up into one severity and when a rerun is
// worth triggering. Thresholds differ per stage.
type Policy struct {
	// HighsForHigh is how many high-severity issues make the overall
	// severity high; fewer highs roll up to medium
	HighsForHigh int
	// MediumsForMedium is how many medium issues make the overall severity
	// medium; fewer roll up to low
	MediumsForMedium int
	// StrictMode makes a medium overall severity fail the gate
	StrictMode bool
	// RerunOnMedium allows a medium severity to trigger a rerun in strict
	// mode. Only the completeness stage uses this.
	RerunOnMedium bool
}

// CheckFunc inspects the input and returns findings, metrics, and the
// parameter overrides a retry should apply
type CheckFunc func(in Input) ([]Issue, map[string]float64, map[string]string)

// Gate runs one validation stage with bounded reruns. Attempts increment on
// every invocation regardless of outcome.
type Gate struct {
	name      string
	policy    Policy
	check     CheckFunc
	maxReruns int
	attempts  int
	verbose   bool
}

// NewGate creates a quality gate
func NewGate(name string, policy Policy, maxReruns int, check CheckFunc) *Gate {
	if policy.HighsForHigh < 1 {
		policy.HighsForHigh = 1
	}
	if policy.MediumsForMedium < 1 {
		policy.MediumsForMedium = 1
	}
	return &Gate{name: name, policy: policy, check: check, maxReruns: maxReruns}
}

// SetVerbose enables per-invocation logging
func (g *Gate) SetVerbose(v bool) { g.verbose = v }

// Name returns the gate's stage name
func (g *Gate) Name() string { return g.name }

// Run invokes the stage check and decides pass/rerun/accept-degraded.
// Terminal states: passed, or attempts exhausted.
func (g *Gate) Run(in Input) Result {
	g.attempts++

	issues, metrics, retryParams := g.check(in)
	severity := g.rollup(issues)

	passed := severity == SeverityLow || (severity == SeverityMedium && !g.policy.StrictMode)

	needsRerun := false
	if !passed && g.attempts < g.maxReruns {
		switch severity {
		case SeverityHigh, SeverityCritical:
			needsRerun = true
		case SeverityMedium:
			needsRerun = g.policy.RerunOnMedium && g.policy.StrictMode
		}
	}

	result := Result{
		Name:     g.name,
		Passed:   passed,
		Severity: severity,
		Issues:   issues,
		Metrics:  metrics,
		Attempts: g.attempts,
	}
	if needsRerun {
		result.NeedsRerun = true
		result.RetryParams = retryParams
	}

	if g.verbose {
		fmt.Fprintf(os.Stderr, "critic %s: attempt %d severity=%s passed=%v issues=%d rerun=%v\n",
			g.name, g.attempts, severity, passed, len(issues), needsRerun)
	}
	return result
}

// rollup folds issue severities into one overall severity
func (g *Gate) rollup(issues []Issue) Severity {
	if len(issues) == 0 {
		return SeverityLow
	}
	counts := map[Severity]int{}
	for _, issue := range issues {
		counts[issue.Severity]++
	}
	switch {
	case counts[SeverityCritical] > 0:
		return SeverityCritical
	case counts[SeverityHigh] >= g.policy.HighsForHigh:
		return SeverityHigh
	case counts[SeverityHigh] > 0:
		return SeverityMedium
	case counts[SeverityMedium] >= g.policy.MediumsForMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Attempts returns how many times the gate has run
func (g *Gate) Attempts() int { return g.attempts }

// Summarize converts a gate result into its report row
func Summarize(r Result) model.CriticRun {
	return model.CriticRun{
		Name:     r.Name,
		Attempts: r.Attempts,
		Passed:   r.Passed,
		Severity: string(r.Severity),
		Issues:   len(r.Issues),
	}
}

// Package rules provides the declarative guideline rule model: rule
// records, rule sets, YAML loading, and load-time validation. A rule set
// is validated once per run and is immutable afterwards, which makes it
// safe to share across concurrent file scans.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope selects which declarations or subtrees a rule applies to.
type Scope string

const (
	ScopeFunction Scope = "function"
	ScopeVariable Scope = "variable"
	ScopeGlobal   Scope = "global"
	ScopeStatic   Scope = "static"
	ScopeMacro    Scope = "macro"
	ScopeFile     Scope = "file"
	ScopeAny      Scope = "any"
)

// Kind is the closed set of rule kinds the engine dispatches on.
type Kind string

const (
	KindNaming           Kind = "naming"
	KindMetric           Kind = "metric"
	KindForbiddenCall    Kind = "forbidden-call"
	KindStructuralSafety Kind = "structural-safety"
)

// Severity ranks a violation's importance.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Metric names the calculators a metric rule can reference.
type Metric string

const (
	MetricCyclomaticComplexity Metric = "cyclomatic_complexity"
	MetricNestingDepth         Metric = "nesting_depth"
	MetricFunctionLength       Metric = "function_length"
	MetricParameterCount       Metric = "parameter_count"
)

// Check names the structural-safety detectors.
type Check string

const (
	CheckRecursion           Check = "recursion"
	CheckInfiniteLoop        Check = "infinite-loop"
	CheckMissingFinalElse    Check = "missing-final-else"
	CheckMagicNumber         Check = "magic-number"
	CheckUnguardedArrayWrite Check = "unguarded-array-write"
	CheckGoto                Check = "goto"
	CheckFileHeader          Check = "file-header"
)

// Rule is one guideline rule record. The payload fields are kind-specific:
// Pattern for naming rules, Metric/Threshold for metric rules, Forbidden
// for forbidden-call rules, and Check (plus Required or Allow) for
// structural-safety rules.
type Rule struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Scope     Scope     `yaml:"scope"`
	Kind      Kind      `yaml:"kind"`
	Pattern   string    `yaml:"pattern"`
	Metric    Metric    `yaml:"metric"`
	Threshold int       `yaml:"threshold"`
	Forbidden []string  `yaml:"forbidden"`
	Check     Check     `yaml:"check"`
	Required  []string  `yaml:"required_lines"`
	Allow     []float64 `yaml:"allow"`
	Severity  Severity  `yaml:"severity"`
	Guidance  string    `yaml:"guidance"`
	Reference string    `yaml:"reference"`

	regex *regexp.Regexp
}

// Regexp returns the rule's compiled naming pattern. It is non-nil only
// after the owning set has passed validation and only for naming rules.
func (r *Rule) Regexp() *regexp.Regexp { return r.regex }

// Set is an ordered, validated sequence of rules. Order defines tie-break
// precedence for display only; every firing rule is still reported.
type Set struct {
	Version int `yaml:"version"`

	// MagicAllow overrides the default magic-number allow-list (0, 1, -1)
	// for magic-number rules that do not carry their own.
	MagicAllow []float64 `yaml:"magic_number_allow"`

	Rules []Rule `yaml:"rules"`
}

// DefaultMagicAllow is the allow-list used by magic-number rules when
// neither the rule nor the set overrides it.
var DefaultMagicAllow = []float64{0, 1, -1}

// MagicAllowFor resolves the effective allow-list for a magic-number rule.
func (s *Set) MagicAllowFor(r *Rule) []float64 {
	if len(r.Allow) > 0 {
		return r.Allow
	}
	if len(s.MagicAllow) > 0 {
		return s.MagicAllow
	}
	return DefaultMagicAllow
}

// ValidationError describes one rejected rule record.
type ValidationError struct {
	RuleID  string
	Message string
}

func (e ValidationError) Error() string {
	if e.RuleID == "" {
		return e.Message
	}
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Message)
}

// ValidationErrors aggregates every diagnostic found in a rule set so a
// single load reports all problems at once.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("rule set validation failed: %s", strings.Join(msgs, "; "))
}

// Validate checks the whole set and compiles naming patterns. It must
// succeed before any file is scanned; a set that fails validation scans
// zero files.
func (s *Set) Validate() error {
	var errs ValidationErrors

	seen := make(map[string]bool, len(s.Rules))
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.ID == "" {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("rule at index %d has no id", i)})
			continue
		}
		if seen[r.ID] {
			errs = append(errs, ValidationError{RuleID: r.ID, Message: "duplicate rule id"})
			continue
		}
		seen[r.ID] = true
		errs = append(errs, validateRule(r)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateRule(r *Rule) ValidationErrors {
	var errs ValidationErrors
	add := func(format string, args ...any) {
		errs = append(errs, ValidationError{RuleID: r.ID, Message: fmt.Sprintf(format, args...)})
	}

	switch r.Scope {
	case ScopeFunction, ScopeVariable, ScopeGlobal, ScopeStatic, ScopeMacro, ScopeFile, ScopeAny:
	case "":
		add("missing required field: scope")
	default:
		add("unknown scope %q", r.Scope)
	}

	switch r.Severity {
	case SeverityCritical, SeverityMajor, SeverityMinor:
	case "":
		add("missing required field: severity")
	default:
		add("unknown severity %q", r.Severity)
	}

	switch r.Kind {
	case KindNaming:
		if r.Pattern == "" {
			add("naming rule requires a pattern")
			break
		}
		re, err := regexp.Compile(anchored(r.Pattern))
		if err != nil {
			add("invalid pattern %q: %v", r.Pattern, err)
			break
		}
		r.regex = re
		switch r.Scope {
		case ScopeFile:
			add("naming rule cannot use scope %q", r.Scope)
		}
	case KindMetric:
		switch r.Metric {
		case MetricCyclomaticComplexity, MetricNestingDepth, MetricFunctionLength, MetricParameterCount:
		case "":
			add("metric rule requires a metric name")
		default:
			add("unknown metric %q", r.Metric)
		}
		if r.Threshold <= 0 {
			add("metric rule requires a positive threshold")
		}
	case KindForbiddenCall:
		if len(r.Forbidden) == 0 {
			add("forbidden-call rule requires a non-empty forbidden list")
		}
	case KindStructuralSafety:
		switch r.Check {
		case CheckRecursion, CheckInfiniteLoop, CheckMissingFinalElse,
			CheckMagicNumber, CheckUnguardedArrayWrite, CheckGoto:
		case CheckFileHeader:
			if len(r.Required) == 0 {
				add("file-header check requires required_lines")
			}
		case "":
			add("structural-safety rule requires a check selector")
		default:
			add("unknown structural check %q", r.Check)
		}
	case "":
		add("missing required field: kind")
	default:
		add("unknown kind %q", r.Kind)
	}

	return errs
}

// anchored wraps a pattern so it must match the entire identifier, never a
// substring.
func anchored(pattern string) string {
	return `\A(?:` + pattern + `)\z`
}

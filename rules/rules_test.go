package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNaming(id string) Rule {
	return Rule{
		ID:       id,
		Scope:    ScopeFunction,
		Kind:     KindNaming,
		Pattern:  `[a-z_]+`,
		Severity: SeverityMinor,
	}
}

func TestSet_Validate_AcceptsWellFormedRules(t *testing.T) {
	set := &Set{Version: 1, Rules: []Rule{
		validNaming("NAMING_FUNC_001"),
		{
			ID:        "FUNC_CC_001",
			Scope:     ScopeFunction,
			Kind:      KindMetric,
			Metric:    MetricCyclomaticComplexity,
			Threshold: 10,
			Severity:  SeverityMajor,
		},
		{
			ID:        "MEM_DYN_001",
			Scope:     ScopeAny,
			Kind:      KindForbiddenCall,
			Forbidden: []string{"malloc", "free"},
			Severity:  SeverityCritical,
		},
		{
			ID:       "CTRL_GOTO_001",
			Scope:    ScopeFunction,
			Kind:     KindStructuralSafety,
			Check:    CheckGoto,
			Severity: SeverityMajor,
		},
		{
			ID:       "DOC_HEADER_001",
			Scope:    ScopeFile,
			Kind:     KindStructuralSafety,
			Check:    CheckFileHeader,
			Required: []string{"Copyright"},
			Severity: SeverityMinor,
		},
	}}

	require.NoError(t, set.Validate())
	assert.NotNil(t, set.Rules[0].Regexp())
}

func TestSet_Validate_DuplicateID(t *testing.T) {
	set := &Set{Rules: []Rule{validNaming("SAME"), validNaming("SAME")}}

	err := set.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "SAME", errs[0].RuleID)
	assert.Contains(t, errs[0].Message, "duplicate")
}

func TestSet_Validate_CollectsEveryDiagnostic(t *testing.T) {
	set := &Set{Rules: []Rule{
		{ID: "A", Scope: "galaxy", Kind: KindNaming, Pattern: "x", Severity: SeverityMinor},
		{ID: "B", Scope: ScopeFunction, Kind: KindMetric, Metric: "halstead", Threshold: 5, Severity: SeverityMajor},
		{ID: "C", Scope: ScopeFunction, Kind: KindForbiddenCall, Severity: SeverityCritical},
	}}

	err := set.Validate()
	require.Error(t, err)
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)
	assert.Contains(t, err.Error(), `unknown scope "galaxy"`)
	assert.Contains(t, err.Error(), `unknown metric "halstead"`)
	assert.Contains(t, err.Error(), "non-empty forbidden list")
}

func TestSet_Validate_RejectsBadPattern(t *testing.T) {
	bad := validNaming("NAMING_BAD_001")
	bad.Pattern = `[a-z`
	set := &Set{Rules: []Rule{bad}}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestSet_Validate_NamingCannotTargetFiles(t *testing.T) {
	r := validNaming("NAMING_FILE_001")
	r.Scope = ScopeFile
	set := &Set{Rules: []Rule{r}}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot use scope "file"`)
}

func TestSet_Validate_MetricNeedsPositiveThreshold(t *testing.T) {
	set := &Set{Rules: []Rule{{
		ID:       "FUNC_CC_001",
		Scope:    ScopeFunction,
		Kind:     KindMetric,
		Metric:   MetricCyclomaticComplexity,
		Severity: SeverityMajor,
	}}}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive threshold")
}

func TestSet_Validate_FileHeaderNeedsRequiredLines(t *testing.T) {
	set := &Set{Rules: []Rule{{
		ID:       "DOC_HEADER_001",
		Scope:    ScopeFile,
		Kind:     KindStructuralSafety,
		Check:    CheckFileHeader,
		Severity: SeverityMinor,
	}}}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required_lines")
}

func TestSet_Validate_MissingFields(t *testing.T) {
	set := &Set{Rules: []Rule{{ID: "EMPTY_001"}}}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field: scope")
	assert.Contains(t, err.Error(), "missing required field: severity")
	assert.Contains(t, err.Error(), "missing required field: kind")
}

func TestRule_RegexpIsAnchored(t *testing.T) {
	set := &Set{Rules: []Rule{validNaming("NAMING_FUNC_001")}}
	require.NoError(t, set.Validate())

	re := set.Rules[0].Regexp()
	assert.True(t, re.MatchString("lower_case"))
	assert.False(t, re.MatchString("lower_caseX"), "suffix must not slip past the pattern")
	assert.False(t, re.MatchString("Xlower_case"), "prefix must not slip past the pattern")
}

func TestSet_MagicAllowFor(t *testing.T) {
	rule := &Rule{ID: "CTRL_MAGIC_001"}

	set := &Set{}
	assert.Equal(t, DefaultMagicAllow, set.MagicAllowFor(rule))

	set.MagicAllow = []float64{0, 1, 2, 4, 8}
	assert.Equal(t, []float64{0, 1, 2, 4, 8}, set.MagicAllowFor(rule))

	rule.Allow = []float64{100}
	assert.Equal(t, []float64{100}, set.MagicAllowFor(rule))
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "rule X_001: broken", ValidationError{RuleID: "X_001", Message: "broken"}.Error())
	assert.Equal(t, "no id here", ValidationError{Message: "no id here"}.Error())
}

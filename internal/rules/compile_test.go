package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultDoc(t *testing.T) *Rules {
	t.Helper()
	r, err := Parse(DefaultRaw(), FormatJSON, DefaultSource)
	require.NoError(t, err)
	return r
}

func TestCompile_BadPattern(t *testing.T) {
	r := defaultDoc(t)
	r.LocationPatterns = append(r.LocationPatterns, "(unclosed")

	_, err := Compile(r)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "location_patterns", compileErr.Field)
	assert.Equal(t, len(r.LocationPatterns)-1, compileErr.Index)
}

func TestCompile_BadRejectPatternReportsIndex(t *testing.T) {
	r := defaultDoc(t)
	r.RejectSubjectPatterns = []string{"ok", "bad[", "fine"}

	_, err := Compile(r)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, 1, compileErr.Index)
}

func TestCompile_BadAnchoredTemplate(t *testing.T) {
	r := defaultDoc(t)
	r.Role.AnchoredTemplates = []string{"{{.Company}}\\s+(.+?"}

	_, err := Compile(r)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "role.anchored_templates", compileErr.Field)
}

func TestCompile_EmptyRejectMatchesNothing(t *testing.T) {
	r := defaultDoc(t)
	r.RejectSubjectPatterns = nil

	rs, err := Compile(r)
	require.NoError(t, err)
	assert.False(t, rs.Reject.MatchString("5 jobs matching your profile"))
	assert.False(t, rs.Reject.MatchString(""))
}

func TestCompile_LowercasesLookups(t *testing.T) {
	r := defaultDoc(t)
	r.KnownCompanyNames = map[string]string{"ACME": "ACME Inc"}
	r.Garbage.RolePhrases = []string{"Best Of Luck"}

	rs, err := Compile(r)
	require.NoError(t, err)
	assert.Equal(t, "ACME Inc", rs.KnownNames["acme"])
	assert.Equal(t, []string{"best of luck"}, rs.RoleGarbage)
}

func TestReject_CaseInsensitive(t *testing.T) {
	rs := MustDefault()

	assert.True(t, rs.Reject.MatchString("5 JOBS MATCHING YOUR PROFILE"))
	assert.True(t, rs.Reject.MatchString("Weekly Newsletter"))
	assert.False(t, rs.Reject.MatchString("You applied for Software Engineer at Acme Corp"))
}

func TestAnchoredRolePatterns_QuotesCompany(t *testing.T) {
	rs := MustDefault()

	patterns := rs.AnchoredRolePatterns("Acme (US) Inc.")
	require.Len(t, patterns, len(rs.AnchoredTemplates))

	m := patterns[0].FindStringSubmatch("You applied for Data Engineer at Acme (US) Inc.")
	require.Len(t, m, 2)
	assert.Equal(t, "Data Engineer", m[1])

	assert.Empty(t, patterns[0].FindStringSubmatch("You applied for Data Engineer at Acme US Inc"))
}

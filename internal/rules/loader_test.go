package rules

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/jobpulse/internal/schemas"
	"github.com/jonathan/jobpulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	ClearCache()

	rs, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, rs.Version)
	assert.Equal(t, []types.EmailType{
		types.EmailTypeRejected, types.EmailTypeAssessment, types.EmailTypeInterview, types.EmailTypeApplied,
	}, rs.Priority)
	assert.NotNil(t, rs.Reject)
	assert.Len(t, rs.Keywords, 4)
	assert.NotEmpty(t, rs.TitleKeywords)
}

func TestDefault_Cached(t *testing.T) {
	ClearCache()

	first, err := Default()
	require.NoError(t, err)
	second, err := Default()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestMustDefault_DoesNotPanic(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		rs := MustDefault()
		assert.NotNil(t, rs)
	})
}

func TestDefault_PlatformsPresent(t *testing.T) {
	rs := MustDefault()

	for _, name := range []string{"LinkedIn", "Naukri", "Indeed", "Glassdoor", "Wellfound", "Workday"} {
		t.Run(name, func(t *testing.T) {
			p, ok := rs.PlatformByName(name)
			require.True(t, ok)
			assert.NotEmpty(t, p.Senders)
			assert.NotEmpty(t, p.Subject)
		})
	}

	_, ok := rs.PlatformByName("Nope")
	assert.False(t, ok)
}

func TestLoadFile_YAMLOverride(t *testing.T) {
	base, err := Parse(DefaultRaw(), FormatJSON, DefaultSource)
	require.NoError(t, err)
	base.Version = "custom-1"
	base.KnownCompanyNames["acme"] = "ACME"

	data, err := Encode(base, FormatYAML)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	rs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", rs.Version)
	assert.Equal(t, "ACME", rs.KnownNames["acme"])
	assert.Len(t, rs.Platforms, len(base.Platforms))
}

func TestLoadFile_JSONRoundTrip(t *testing.T) {
	base, err := Parse(DefaultRaw(), FormatJSON, DefaultSource)
	require.NoError(t, err)

	data, err := Encode(base, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), "(?P<role>", "encoded patterns should stay readable")

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	rs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, base.Version, rs.Version)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "failed to read")
}

func TestParse_SchemaViolation(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(DefaultRaw(), &doc))
	delete(doc, "priority")
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = Parse(data, FormatJSON, "test")
	require.Error(t, err)

	var validationErr *schemas.ValidationError
	assert.True(t, errors.As(err, &validationErr), "cause should be a schema ValidationError")
}

func TestParse_UnknownPriorityCategory(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(DefaultRaw(), &doc))
	doc["priority"] = []string{"rejected", "assessment", "interview", "offer"}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = Parse(data, FormatJSON, "test")
	assert.Error(t, err)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("version: [unterminated"), FormatYAML, "bad.yaml")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "bad.yaml", loadErr.Source)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("rules.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("RULES.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("rules.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("rules"))
}

package extract

import (
	"testing"

	"github.com/jonathan/jobpulse/internal/normalize"
	"github.com/jonathan/jobpulse/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor() *Extractor {
	return New(rules.MustDefault())
}

func TestStrategies_Order(t *testing.T) {
	var names []string
	for _, s := range newExtractor().Strategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		TierPlatformSubject,
		TierPlatformBody,
		TierLocation,
		TierGenericCompany,
		TierSpecificRole,
		TierAnchoredRole,
		TierGenericRole,
	}, names)
}

func TestExtract_LinkedInSubject(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:   "jobs-noreply@linkedin.com",
		Subject:  "You applied for Software Engineer at Acme Corp",
		Platform: "LinkedIn",
	})

	assert.Equal(t, "Acme Corp", f.Company)
	assert.Equal(t, "Software Engineer", f.Role)
	assert.Equal(t, TierPlatformSubject, f.CompanyTier)
	assert.Equal(t, TierPlatformSubject, f.RoleTier)
}

func TestExtract_BodyRoleReplacesSubjectRole(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:   "jobs-noreply@linkedin.com",
		Subject:  "Your application was sent to Acme Corp",
		Body:     "You applied for Data Engineer at Acme Corp.\n",
		Preview:  "You applied for Data Engineer at Acme Corp.",
		Platform: "LinkedIn",
	})

	assert.Equal(t, "Acme Corp", f.Company)
	assert.Equal(t, TierPlatformSubject, f.CompanyTier)
	assert.Equal(t, "Data Engineer", f.Role)
	assert.Equal(t, TierPlatformBody, f.RoleTier)
}

func TestExtract_LabelledBodyFillsBothFields(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:   "info@naukri.com",
		Subject:  "Naukri update",
		Body:     "Thanks for applying\nPosition: Backend Developer\nCompany: Infosys\nLocation: Bengaluru, India\n",
		Preview:  "Thanks for applying Position: Backend Developer Company: Infosys Location: Bengaluru, India",
		Platform: "Naukri",
	})

	assert.Equal(t, "Infosys", f.Company)
	assert.Equal(t, "Backend Developer", f.Role)
	assert.Equal(t, "Bengaluru, India", f.Location)
	assert.Equal(t, TierPlatformBody, f.CompanyTier)
}

func TestExtract_WrappedBodySentence(t *testing.T) {
	body := "Hi Jane,\nYou applied to Senior Data\nEngineer at Acme Corp.\nGood luck"
	f := newExtractor().Extract(&Input{
		Sender:   "indeedapply@indeed.com",
		Subject:  "Indeed Application Update",
		Text:     normalize.StripMarkup(body),
		Body:     normalize.StripMarkupLines(body),
		Preview:  normalize.Preview(body),
		Platform: "Indeed",
	})

	assert.Equal(t, "Acme Corp", f.Company)
	assert.Equal(t, "Senior Data Engineer", f.Role)
	assert.Equal(t, TierPlatformBody, f.CompanyTier)
	assert.Equal(t, TierPlatformBody, f.RoleTier)
}

func TestExtract_LabelPatternsFallBackToLines(t *testing.T) {
	body := "Thanks for applying\nPosition: Backend Developer\nCompany: Infosys\n"
	f := newExtractor().Extract(&Input{
		Sender:   "noreply@indeed.com",
		Subject:  "Indeed Application Update",
		Text:     normalize.StripMarkup(body),
		Body:     normalize.StripMarkupLines(body),
		Preview:  normalize.Preview(body),
		Platform: "Indeed",
	})

	assert.Equal(t, "Infosys", f.Company)
	assert.Equal(t, "Backend Developer", f.Role)
	assert.Equal(t, TierPlatformBody, f.CompanyTier)
}

func TestExtract_UnknownPlatformSkipsPlatformTiers(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Subject:  "You applied for Software Engineer at Acme Corp",
		Platform: "Nowhere",
	})
	assert.NotEqual(t, TierPlatformSubject, f.CompanyTier)
	assert.NotEqual(t, TierPlatformSubject, f.RoleTier)
}

func TestExtract_GenericCompanyFromSubject(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:  "no-reply@greenhouse.io",
		Subject: "Your application at Globex Industries",
	})
	assert.Equal(t, "Globex Industries", f.Company)
	assert.Equal(t, TierGenericCompany, f.CompanyTier)
}

func TestExtract_CompanyFromSenderDomain(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:  "Barclays <noreply@barclays.com>",
		Subject: "Update on your application",
		Preview: "Thank you for your time.",
	})
	assert.Equal(t, "Barclays", f.Company)
	assert.Equal(t, TierSender, f.CompanyTier)
}

func TestCompanyFromSender(t *testing.T) {
	e := newExtractor()
	tests := []struct {
		sender string
		want   string
	}{
		{"careers@barclays.com", "Barclays"},
		{"hr@ibm.com", "IBM"},
		{"barclays@myworkday.com", "Barclays"},
		{"noreply@myworkday.com", ""},
		{"jobs@gmail.com", ""},
		{"no address here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CompanyFromSender(tt.sender))
		})
	}
}

func TestExtract_SpecificRoleOnceCompanyKnown(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:  "careers@acme.com",
		Subject: "Application update",
		Preview: "Thank you for applying for the role of 69706 - Data Engineer with us.",
	})
	require.Equal(t, "Acme", f.Company)
	assert.Equal(t, "Data Engineer", f.Role)
	assert.Equal(t, TierSpecificRole, f.RoleTier)
}

func TestExtract_AnchoredRolePrefersLongerTitle(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:   "jobs-noreply@linkedin.com",
		Subject:  "You applied for Engineer at Acme",
		Preview:  "You applied for Senior Platform Engineer at Acme today",
		Platform: "LinkedIn",
	})
	assert.Equal(t, "Acme", f.Company)
	assert.Equal(t, "Senior Platform Engineer", f.Role)
	assert.Equal(t, TierAnchoredRole, f.RoleTier)
}

func TestExtract_GenericRoleFromSubject(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Sender:  "careers@acme.com",
		Subject: "Interview for the position of Site Reliability Engineer at Acme",
	})
	assert.Equal(t, "Acme", f.Company)
	assert.Equal(t, "Site Reliability Engineer", f.Role)
	assert.Equal(t, TierGenericRole, f.RoleTier)
}

func TestExtract_GenericRoleWithoutGroupUsesWholeMatch(t *testing.T) {
	f := newExtractor().Extract(&Input{
		Subject: "Update regarding Data Analyst",
	})
	assert.Equal(t, "Data Analyst", f.Role)
	assert.Empty(t, f.Company)
}

func TestExtract_NothingToFind(t *testing.T) {
	f := newExtractor().Extract(&Input{Subject: "hello", Preview: "just saying hi"})
	assert.Equal(t, Fields{}, f)
}

func TestExtract_Deterministic(t *testing.T) {
	e := newExtractor()
	in := &Input{
		Sender:   "jobs-noreply@linkedin.com",
		Subject:  "Your application was sent to Acme Corp",
		Body:     "You applied for Data Engineer at Acme Corp.\nLocation: Remote\n",
		Preview:  "You applied for Data Engineer at Acme Corp. Location: Remote",
		Platform: "LinkedIn",
	}
	first := e.Extract(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract(in))
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Barclays", capitalize("bARCLAYS"))
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Émile", capitalize("émile"))
}

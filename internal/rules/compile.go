package rules

import (
	"regexp"
	"strings"

	"github.com/jonathan/jobpulse/internal/types"
)

// RuleSet is the compiled, read-only form of Rules. It is safe for
// concurrent use and is never mutated after Compile returns.
type RuleSet struct {
	Version string

	// Reject is the case-insensitive disjunction of all reject subject patterns.
	Reject *regexp.Regexp

	Priority        []types.EmailType
	Keywords        map[types.EmailType][]string
	KeywordPatterns map[types.EmailType][]*regexp.Regexp

	Platforms      []Platform
	ATSDomains     []ATSDomain
	OtherPlatforms []string

	Location []*regexp.Regexp

	CompanySubject       []*regexp.Regexp
	CompanyBody          []*regexp.Regexp
	CompanyTrailingNoise *regexp.Regexp
	SkipDomains          map[string]struct{}
	GenericUsers         map[string]struct{}

	SpecificRole      []*regexp.Regexp
	AnchoredTemplates []string
	GenericRole       []*regexp.Regexp
	BoundaryWords     []string

	RoleGarbage    []string
	CompanyGarbage []string
	URLTokens      map[string]struct{}
	SenderTokens   []string

	KnownNames    map[string]string
	TitleKeywords []string

	source *Rules
}

// Platform is a compiled job board entry.
type Platform struct {
	Name    string
	Senders []string
	Subject []*regexp.Regexp
	Body    []*regexp.Regexp
}

// Source returns the rule document the set was compiled from.
func (rs *RuleSet) Source() *Rules {
	return rs.source
}

// Compile compiles a rule document into a RuleSet.
func Compile(r *Rules) (*RuleSet, error) {
	rs := &RuleSet{
		Version:         r.Version,
		Priority:        append([]types.EmailType(nil), r.Priority...),
		Keywords:        make(map[types.EmailType][]string, len(r.Keywords)),
		KeywordPatterns: make(map[types.EmailType][]*regexp.Regexp, len(r.KeywordPatterns)),
		ATSDomains:      make([]ATSDomain, 0, len(r.ATSDomains)),
		OtherPlatforms:  append([]string(nil), r.OtherPlatforms...),
		SkipDomains:     toSet(r.Company.SkipDomains),
		GenericUsers:    toSet(r.Company.GenericUsers),
		BoundaryWords:   append([]string(nil), r.Role.BoundaryWords...),
		RoleGarbage:     lowerAll(r.Garbage.RolePhrases),
		CompanyGarbage:  lowerAll(r.Garbage.CompanyPhrases),
		URLTokens:       toSet(r.Garbage.URLTokens),
		SenderTokens:    lowerAll(r.Garbage.SenderTokens),
		KnownNames:      make(map[string]string, len(r.KnownCompanyNames)),
		TitleKeywords:   lowerAll(r.JobTitleKeywords),
		source:          r,
	}

	reject, err := compileDisjunction("reject_subject_patterns", r.RejectSubjectPatterns)
	if err != nil {
		return nil, err
	}
	rs.Reject = reject

	for category, words := range r.Keywords {
		rs.Keywords[category] = lowerAll(words)
	}
	for category, patterns := range r.KeywordPatterns {
		compiled, err := compileAll("keyword_patterns."+string(category), patterns, true)
		if err != nil {
			return nil, err
		}
		rs.KeywordPatterns[category] = compiled
	}

	for _, p := range r.Platforms {
		subject, err := compileAll("platforms."+p.Name+".subject_patterns", p.SubjectPatterns, true)
		if err != nil {
			return nil, err
		}
		body, err := compileAll("platforms."+p.Name+".body_patterns", p.BodyPatterns, true)
		if err != nil {
			return nil, err
		}
		rs.Platforms = append(rs.Platforms, Platform{
			Name:    p.Name,
			Senders: lowerAll(p.Senders),
			Subject: subject,
			Body:    body,
		})
	}

	for _, d := range r.ATSDomains {
		rs.ATSDomains = append(rs.ATSDomains, ATSDomain{Domain: strings.ToLower(d.Domain), Platform: d.Platform})
	}

	if rs.Location, err = compileAll("location_patterns", r.LocationPatterns, false); err != nil {
		return nil, err
	}
	if rs.CompanySubject, err = compileAll("company.subject_patterns", r.Company.SubjectPatterns, false); err != nil {
		return nil, err
	}
	if rs.CompanyBody, err = compileAll("company.body_patterns", r.Company.BodyPatterns, false); err != nil {
		return nil, err
	}
	if r.Company.TrailingNoisePattern != "" {
		noise, err := regexp.Compile(r.Company.TrailingNoisePattern)
		if err != nil {
			return nil, &CompileError{Field: "company.trailing_noise_pattern", Pattern: r.Company.TrailingNoisePattern, Cause: err}
		}
		rs.CompanyTrailingNoise = noise
	}

	if rs.SpecificRole, err = compileAll("role.specific_patterns", r.Role.SpecificPatterns, true); err != nil {
		return nil, err
	}
	if rs.GenericRole, err = compileAll("role.generic_patterns", r.Role.GenericPatterns, true); err != nil {
		return nil, err
	}
	for i, tmpl := range r.Role.AnchoredTemplates {
		// Probe with a literal so a broken template fails at load time, not per email.
		if _, err := regexp.Compile("(?i)" + strings.ReplaceAll(tmpl, CompanyPlaceholder, "probe")); err != nil {
			return nil, &CompileError{Field: "role.anchored_templates", Index: i, Pattern: tmpl, Cause: err}
		}
		rs.AnchoredTemplates = append(rs.AnchoredTemplates, tmpl)
	}

	for variant, canonical := range r.KnownCompanyNames {
		rs.KnownNames[strings.ToLower(variant)] = canonical
	}

	return rs, nil
}

// AnchoredRolePatterns instantiates the anchored role templates for a
// known company name.
func (rs *RuleSet) AnchoredRolePatterns(company string) []*regexp.Regexp {
	quoted := regexp.QuoteMeta(company)
	out := make([]*regexp.Regexp, 0, len(rs.AnchoredTemplates))
	for _, tmpl := range rs.AnchoredTemplates {
		re, err := regexp.Compile("(?i)" + strings.ReplaceAll(tmpl, CompanyPlaceholder, quoted))
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// PlatformByName returns the compiled job board entry with the given name.
func (rs *RuleSet) PlatformByName(name string) (Platform, bool) {
	for _, p := range rs.Platforms {
		if p.Name == name {
			return p, true
		}
	}
	return Platform{}, false
}

func compileAll(field string, patterns []string, ignoreCase bool) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		expr := p
		if ignoreCase {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &CompileError{Field: field, Index: i, Pattern: p, Cause: err}
		}
		out = append(out, re)
	}
	return out, nil
}

func compileDisjunction(field string, patterns []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(patterns))
	for i, p := range patterns {
		// Compile individually first so the error points at the offending entry.
		if _, err := regexp.Compile(p); err != nil {
			return nil, &CompileError{Field: field, Index: i, Pattern: p, Cause: err}
		}
		parts = append(parts, "(?:"+p+")")
	}
	if len(parts) == 0 {
		// Matches nothing.
		return regexp.MustCompile(`[^\x00-\x{10FFFF}]`), nil
	}
	return regexp.Compile("(?i)" + strings.Join(parts, "|"))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[strings.ToLower(s)] = struct{}{}
	}
	return out
}

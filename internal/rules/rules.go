// Package rules provides the classification and extraction rule base.
// The default rule base is stored as JSON and embedded at compile time;
// operators may override it with a JSON or YAML file of the same shape.
package rules

import "github.com/jonathan/jobpulse/internal/types"

// Rules is the editable, serialisable form of the rule base.
type Rules struct {
	Version               string                        `json:"version" yaml:"version"`
	Priority              []types.EmailType             `json:"priority" yaml:"priority"`
	RejectSubjectPatterns []string                      `json:"reject_subject_patterns" yaml:"reject_subject_patterns"`
	Keywords              map[types.EmailType][]string  `json:"keywords" yaml:"keywords"`
	KeywordPatterns       map[types.EmailType][]string  `json:"keyword_patterns,omitempty" yaml:"keyword_patterns,omitempty"`
	Platforms             []PlatformRules               `json:"platforms" yaml:"platforms"`
	ATSDomains            []ATSDomain                   `json:"ats_domains" yaml:"ats_domains"`
	OtherPlatforms        []string                      `json:"other_platforms,omitempty" yaml:"other_platforms,omitempty"`
	LocationPatterns      []string                      `json:"location_patterns" yaml:"location_patterns"`
	Company               CompanyRules                  `json:"company" yaml:"company"`
	Role                  RoleRules                     `json:"role" yaml:"role"`
	Garbage               GarbageRules                  `json:"garbage" yaml:"garbage"`
	KnownCompanyNames     map[string]string             `json:"known_company_names" yaml:"known_company_names"`
	JobTitleKeywords      []string                      `json:"job_title_keywords" yaml:"job_title_keywords"`
}

// PlatformRules describes a job board: the addresses it sends from and the
// patterns that pull role and company out of its confirmations.
// A pattern may use named groups "role"/"company" or positional groups
// (role first, company second).
type PlatformRules struct {
	Name            string   `json:"name" yaml:"name"`
	Senders         []string `json:"senders" yaml:"senders"`
	SubjectPatterns []string `json:"subject_patterns,omitempty" yaml:"subject_patterns,omitempty"`
	BodyPatterns    []string `json:"body_patterns,omitempty" yaml:"body_patterns,omitempty"`
}

// ATSDomain maps an applicant tracking system sender domain to its vendor name.
type ATSDomain struct {
	Domain   string `json:"domain" yaml:"domain"`
	Platform string `json:"platform" yaml:"platform"`
}

// CompanyRules drives generic company extraction for mail that does not
// come from a known job board.
type CompanyRules struct {
	SubjectPatterns      []string `json:"subject_patterns" yaml:"subject_patterns"`
	BodyPatterns         []string `json:"body_patterns" yaml:"body_patterns"`
	TrailingNoisePattern string   `json:"trailing_noise_pattern,omitempty" yaml:"trailing_noise_pattern,omitempty"`
	SkipDomains          []string `json:"skip_domains" yaml:"skip_domains"`
	GenericUsers         []string `json:"generic_users" yaml:"generic_users"`
}

// RoleRules drives role extraction once platform patterns are exhausted.
// Anchored templates contain the {{.Company}} placeholder, replaced by the
// quoted company name before compilation.
type RoleRules struct {
	SpecificPatterns  []string `json:"specific_patterns" yaml:"specific_patterns"`
	AnchoredTemplates []string `json:"anchored_templates" yaml:"anchored_templates"`
	GenericPatterns   []string `json:"generic_patterns" yaml:"generic_patterns"`
	BoundaryWords     []string `json:"boundary_words,omitempty" yaml:"boundary_words,omitempty"`
}

// GarbageRules lists filler phrases and tokens that disqualify a candidate value.
type GarbageRules struct {
	RolePhrases    []string `json:"role_phrases" yaml:"role_phrases"`
	CompanyPhrases []string `json:"company_phrases" yaml:"company_phrases"`
	URLTokens      []string `json:"url_tokens" yaml:"url_tokens"`
	SenderTokens   []string `json:"sender_tokens" yaml:"sender_tokens"`
}

// CompanyPlaceholder is substituted in anchored role templates.
const CompanyPlaceholder = "{{.Company}}"

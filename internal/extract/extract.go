// Package extract pulls company, role and location candidates out of an
// email through an ordered cascade of strategies. Each strategy only acts on
// the fields earlier strategies left empty, except where noted.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/jobpulse/internal/disambiguate"
	"github.com/jonathan/jobpulse/internal/normalize"
	"github.com/jonathan/jobpulse/internal/rules"
)

// Strategy names, in cascade order.
const (
	TierPlatformSubject = "platform_subject"
	TierPlatformBody    = "platform_body"
	TierLocation        = "location"
	TierGenericCompany  = "generic_company"
	TierSpecificRole    = "specific_role"
	TierAnchoredRole    = "anchored_role"
	TierGenericRole     = "generic_role"
	TierSender          = "sender"
)

// Input is the normalised view of one email handed to the cascade.
type Input struct {
	Sender  string
	Subject string
	// Text is the full plain-text body on a single line.
	Text string
	// Body is the plain-text body with line structure preserved.
	Body string
	// Preview is the single-line plain-text body, cut to the preview length.
	Preview string
	// Platform is the job board that sent the email, or "".
	Platform string
}

// Fields holds the extracted candidates and the tier each one came from.
type Fields struct {
	Company     string `json:"company,omitempty"`
	Role        string `json:"role,omitempty"`
	Location    string `json:"location,omitempty"`
	CompanyTier string `json:"company_tier,omitempty"`
	RoleTier    string `json:"role_tier,omitempty"`
}

func (f *Fields) setCompany(v, tier string) {
	f.Company, f.CompanyTier = v, tier
}

func (f *Fields) setRole(v, tier string) {
	f.Role, f.RoleTier = v, tier
}

// Strategy is one tier of the cascade. Run inspects the input and fills
// fields in place; it has no other effects.
type Strategy struct {
	Name string
	Run  func(in *Input, f *Fields)
}

var (
	senderDomainRe = regexp.MustCompile(`@([a-zA-Z0-9-]+)\.`)
	senderUserRe   = regexp.MustCompile(`<?([a-zA-Z][a-zA-Z0-9._-]*)@`)
	atSplitRe      = regexp.MustCompile(`(?i)\s+at\s+`)
)

// companyCutset is trimmed from both ends of a generic company candidate.
const companyCutset = " .-,;:\"'/()[]"

// Extractor runs the strategy cascade for a rule set.
type Extractor struct {
	rules      *rules.RuleSet
	d          *disambiguate.Disambiguator
	strategies []Strategy
}

// New creates an Extractor over a compiled rule set.
func New(rs *rules.RuleSet) *Extractor {
	e := &Extractor{rules: rs, d: disambiguate.New(rs)}
	e.strategies = []Strategy{
		{Name: TierPlatformSubject, Run: e.platformSubject},
		{Name: TierPlatformBody, Run: e.platformBody},
		{Name: TierLocation, Run: e.location},
		{Name: TierGenericCompany, Run: e.genericCompany},
		{Name: TierSpecificRole, Run: e.specificRole},
		{Name: TierAnchoredRole, Run: e.anchoredRole},
		{Name: TierGenericRole, Run: e.genericRole},
	}
	return e
}

// Strategies returns the cascade in evaluation order.
func (e *Extractor) Strategies() []Strategy {
	return append([]Strategy(nil), e.strategies...)
}

// Extract runs every strategy in order and returns the resulting fields.
func (e *Extractor) Extract(in *Input) Fields {
	var f Fields
	for _, s := range e.strategies {
		s.Run(in, &f)
	}
	return f
}

// platformSubject applies the job board's subject patterns. The first
// pattern that matches decides, even if its values are later discarded.
func (e *Extractor) platformSubject(in *Input, f *Fields) {
	p, ok := e.rules.PlatformByName(in.Platform)
	if !ok {
		return
	}
	for _, re := range p.Subject {
		m := re.FindStringSubmatch(in.Subject)
		if m == nil {
			continue
		}
		role, company, _ := groups(re, m)
		if c := normalize.Clean(company); c != "" && f.Company == "" {
			f.setCompany(c, TierPlatformSubject)
		}
		if r := normalize.Clean(role); r != "" && f.Role == "" {
			f.setRole(r, TierPlatformSubject)
		}
		return
	}
}

// platformBody applies the job board's body patterns to the single-line
// body, falling back to the line-preserving body for label patterns that
// need a line end. A body company only fills an empty company, but a body
// role replaces a subject role because bodies carry the fuller title.
func (e *Extractor) platformBody(in *Input, f *Fields) {
	p, ok := e.rules.PlatformByName(in.Platform)
	if !ok {
		return
	}
	var role, company string
	for _, re := range p.Body {
		m := re.FindStringSubmatch(in.Text)
		if m == nil {
			m = re.FindStringSubmatch(in.Body)
		}
		if m == nil {
			continue
		}
		r, c, captured := groups(re, m)
		r, c = normalize.Clean(r), normalize.Clean(c)
		if captured == 1 && !isNamed(re) {
			// A lone positional group fills whichever field is still open.
			v := r
			if role == "" {
				role = v
			} else if company == "" {
				company = v
			}
			continue
		}
		if role == "" {
			role = r
		}
		if company == "" {
			company = c
		}
		if captured >= 2 && (role != "" || company != "") {
			break
		}
	}
	if company != "" && f.Company == "" {
		f.setCompany(company, TierPlatformBody)
	}
	if role != "" {
		f.setRole(role, TierPlatformBody)
	}
}

// location looks for a "Location:" style line in any email.
func (e *Extractor) location(in *Input, f *Fields) {
	if f.Location != "" {
		return
	}
	for _, re := range e.rules.Location {
		m := re.FindStringSubmatch(in.Body)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			if loc := normalize.Clean(m[1]); loc != "" && !normalize.IsGarbage(loc) {
				f.Location = loc
			}
		}
		return
	}
}

// genericCompany derives a company for mail that no platform pattern
// explained: subject phrasing, then body phrasing, then the sender.
func (e *Extractor) genericCompany(in *Input, f *Fields) {
	if f.Company != "" {
		return
	}
	for _, re := range e.rules.CompanySubject {
		if v := e.firstCompany(re, in.Subject); v != "" {
			f.setCompany(v, TierGenericCompany)
			return
		}
	}
	for _, re := range e.rules.CompanyBody {
		if v := e.firstCompany(re, in.Preview); v != "" {
			f.setCompany(v, TierGenericCompany)
			return
		}
	}
	fallback := in.Sender
	if fallback == "" {
		fallback = in.Subject
	}
	if v := e.companyFrom(fallback, in.Sender); v != "" {
		f.setCompany(v, TierSender)
	}
}

func (e *Extractor) firstCompany(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	v := e.cleanCompany(m[1])
	if n := utf8.RuneCountInString(v); n > 2 && n < disambiguate.MaxCompanyLength {
		return v
	}
	return ""
}

func (e *Extractor) cleanCompany(v string) string {
	v = normalize.Clean(v)
	if v == "" {
		return ""
	}
	if e.rules.CompanyTrailingNoise != nil {
		if loc := e.rules.CompanyTrailingNoise.FindStringIndex(v); loc != nil {
			v = strings.TrimSpace(v[:loc[0]])
		}
	}
	v = strings.Trim(v, companyCutset)
	if e.d.CompanyGarbage(v) {
		return ""
	}
	return v
}

// CompanyFromSender derives a company from a sender address alone:
// "careers@barclays.com" gives "Barclays", and for ATS or mail provider
// domains a non-generic mailbox name ("barclays@myworkday.com") is used.
func (e *Extractor) CompanyFromSender(sender string) string {
	return e.companyFrom(sender, sender)
}

func (e *Extractor) companyFrom(domainSource, sender string) string {
	m := senderDomainRe.FindStringSubmatch(domainSource)
	if m == nil {
		return ""
	}
	domain := strings.ToLower(m[1])
	var candidate string
	if _, skip := e.rules.SkipDomains[domain]; !skip {
		candidate = capitalize(domain)
	} else {
		u := senderUserRe.FindStringSubmatch(sender)
		if u == nil {
			return ""
		}
		user := strings.ToLower(u[1])
		if _, generic := e.rules.GenericUsers[user]; generic || utf8.RuneCountInString(user) <= 2 {
			return ""
		}
		candidate = capitalize(user)
	}
	candidate = e.d.FixCompanyName(candidate)
	if e.d.CompanyGarbage(candidate) {
		return ""
	}
	return candidate
}

// specificRole handles phrasings such as "role of 69706 - Data Engineer with"
// once a company is known.
func (e *Extractor) specificRole(in *Input, f *Fields) {
	if f.Company == "" || f.Role != "" {
		return
	}
	for _, re := range e.rules.SpecificRole {
		m := re.FindStringSubmatch(in.Preview)
		if len(m) < 2 {
			continue
		}
		v := e.d.CleanRole(normalize.Clean(m[1]))
		if v != "" && !e.d.RoleGarbage(v) && utf8.RuneCountInString(v) > 2 {
			f.setRole(v, TierSpecificRole)
			return
		}
	}
}

// anchoredRole re-extracts the role around the literal company name and
// keeps it when it is longer than what earlier tiers found.
func (e *Extractor) anchoredRole(in *Input, f *Fields) {
	if f.Company == "" {
		return
	}
	for _, re := range e.rules.AnchoredRolePatterns(f.Company) {
		m := re.FindStringSubmatch(in.Preview)
		if len(m) < 2 {
			continue
		}
		v := normalize.Clean(m[1])
		if v == "" || e.d.RoleGarbage(v) || utf8.RuneCountInString(v) <= 1 {
			continue
		}
		anchored := e.d.CleanRole(v)
		if f.Role == "" || utf8.RuneCountInString(anchored) > utf8.RuneCountInString(f.Role) {
			f.setRole(anchored, TierAnchoredRole)
		}
		return
	}
}

// genericRole tries the generic role templates on the subject, then on the
// body preview. The first non-garbage value wins.
func (e *Extractor) genericRole(in *Input, f *Fields) {
	if f.Role != "" {
		return
	}
	for _, text := range []string{in.Subject, in.Preview} {
		for _, re := range e.rules.GenericRole {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			raw := m[0]
			if len(m) > 1 {
				raw = m[1]
			}
			v := normalize.Clean(raw)
			v = strings.TrimSpace(atSplitRe.Split(v, 2)[0])
			if n := utf8.RuneCountInString(v); v != "" && n > 1 && n < 80 && !e.d.RoleGarbage(v) {
				f.setRole(v, TierGenericRole)
				return
			}
		}
	}
}

// groups reads role and company out of a match. Named groups take
// precedence; otherwise the first positional group is the role and the
// second the company. captured is the number of capture groups.
func groups(re *regexp.Regexp, m []string) (role, company string, captured int) {
	if isNamed(re) {
		for i, name := range re.SubexpNames() {
			switch name {
			case "role":
				role = m[i]
				captured++
			case "company":
				company = m[i]
				captured++
			}
		}
		return role, company, captured
	}
	captured = len(m) - 1
	if captured >= 1 {
		role = m[1]
	}
	if captured >= 2 {
		company = m[2]
	}
	return role, company, captured
}

func isNamed(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames() {
		if name == "role" || name == "company" {
			return true
		}
	}
	return false
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}

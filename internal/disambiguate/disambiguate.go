// Package disambiguate post-processes extracted company and role values:
// it rejects implausible values, fixes role/company swaps, cleans
// requisition noise out of roles and normalises well-known company names.
package disambiguate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/jobpulse/internal/rules"
)

// MaxCompanyLength is the longest company name an application may carry.
const MaxCompanyLength = 50

var (
	reqIDRe        = regexp.MustCompile(`^[A-Z]{1,4}-\d{3,}\s*`)
	numericIDRe    = regexp.MustCompile(`^\d{3,}\s*[-\x{2013}]\s*`)
	statusNoteRe   = regexp.MustCompile(`(?i)\s*\((?:Open|Closed|Filled|Active|Inactive|Draft|Expired)\)?\s*`)
	assessPrefixRe = regexp.MustCompile(`(?i)^(?:coding\s+(?:challenge|test)|online\s+(?:assessment|test)|aptitude\s+test|technical\s+test)\s+(?:for\s+(?:the\s+)?)?`)
	sentenceRe     = regexp.MustCompile(`\s*[.!]\s+`)
	roleSuffixRe   = regexp.MustCompile(`(?i)\s+(?:position|role|opening)\s*$`)
)

// roleCutset is trimmed from both ends of a cleaned role.
const roleCutset = " .-,;:\"'/()[]"

// Disambiguator applies the garbage lists and lookup tables of a rule set.
type Disambiguator struct {
	rules *rules.RuleSet
}

// New creates a Disambiguator over a compiled rule set.
func New(rs *rules.RuleSet) *Disambiguator {
	return &Disambiguator{rules: rs}
}

// RoleGarbage reports whether text is filler rather than a job title.
func (d *Disambiguator) RoleGarbage(text string) bool {
	if text == "" {
		return true
	}
	low := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range d.rules.RoleGarbage {
		if strings.Contains(low, phrase) {
			return true
		}
	}
	words := strings.Fields(low)
	if len(words) > 10 {
		return true
	}
	if !hasLetter(low) {
		return true
	}
	if utf8.RuneCountInString(low) <= 2 {
		return true
	}
	// A lone capitalised word without a title keyword is far more likely a
	// company fragment ("Turbotech", "Barclays") than a role.
	if len(words) == 1 && startsUpper(text) && !d.HasJobTitleKeyword(text) {
		return true
	}
	return false
}

// CompanyGarbage reports whether text is filler or a mail artefact rather
// than a company name.
func (d *Disambiguator) CompanyGarbage(text string) bool {
	if text == "" {
		return true
	}
	low := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range d.rules.CompanyGarbage {
		if strings.Contains(low, phrase) {
			return true
		}
	}
	if len(strings.Fields(low)) > 8 {
		return true
	}
	n := utf8.RuneCountInString(low)
	if n <= 2 || n > MaxCompanyLength {
		return true
	}
	if _, ok := d.rules.URLTokens[low]; ok {
		return true
	}
	return !hasLetter(low)
}

// SenderDisplayName reports whether text looks like a mailbox name
// ("Jobs-noreply", "notifications") or an address rather than a company.
func (d *Disambiguator) SenderDisplayName(text string) bool {
	if text == "" {
		return true
	}
	low := strings.ToLower(strings.TrimSpace(text))
	for _, token := range d.rules.SenderTokens {
		if strings.Contains(low, token) {
			return true
		}
	}
	return strings.Contains(low, "@")
}

// HasJobTitleKeyword reports whether text contains a role-indicative keyword.
// Keywords with a trailing space ("ai ", "bi ") only match whole words at
// the end of text because text is padded with a space on both sides.
func (d *Disambiguator) HasJobTitleKeyword(text string) bool {
	if text == "" {
		return false
	}
	low := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	for _, kw := range d.rules.TitleKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

// LooksLikeCompany reports whether text reads as a company name rather than
// a role: at least two words, mostly capitalised, and no title keyword.
func (d *Disambiguator) LooksLikeCompany(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || d.HasJobTitleKeyword(text) {
		return false
	}
	words := strings.Fields(text)
	if len(words) < 2 {
		return false
	}
	capitalised := 0
	for _, w := range words {
		if startsUpper(w) {
			capitalised++
		}
	}
	return float64(capitalised) >= float64(len(words))*0.6
}

// Resolve corrects role/company swaps. A company-looking role with no
// company becomes the company; a company-looking role next to a company
// that carries a title keyword trades places with it.
func (d *Disambiguator) Resolve(company, role string) (string, string) {
	if role != "" && company == "" && d.LooksLikeCompany(role) {
		return role, ""
	}
	if role != "" && company != "" && d.LooksLikeCompany(role) && d.HasJobTitleKeyword(company) {
		return role, company
	}
	return company, role
}

// FixCompanyName maps a known lowercase variant to its canonical spelling.
func (d *Disambiguator) FixCompanyName(name string) string {
	if name == "" {
		return name
	}
	if canonical, ok := d.rules.KnownNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return name
}

// CleanRole strips requisition IDs, status annotations, assessment phrasing
// and trailing boilerplate from a role, and closes an unmatched parenthesis.
func (d *Disambiguator) CleanRole(text string) string {
	if text == "" {
		return text
	}
	text = strings.TrimSpace(reqIDRe.ReplaceAllString(text, ""))
	text = strings.TrimSpace(numericIDRe.ReplaceAllString(text, ""))
	text = strings.Join(strings.Fields(statusNoteRe.ReplaceAllString(text, " ")), " ")
	text = strings.TrimSpace(assessPrefixRe.ReplaceAllString(text, ""))
	text = d.truncateSentence(text)
	text = strings.TrimSpace(roleSuffixRe.ReplaceAllString(text, ""))
	text = strings.Trim(text, roleCutset)
	if strings.Contains(text, "(") && !strings.Contains(text, ")") {
		text += ")"
	}
	return text
}

// truncateSentence cuts text at the first sentence break followed by a
// capital letter or a boilerplate continuation word.
func (d *Disambiguator) truncateSentence(text string) string {
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		if startsUpper(rest) || hasAnyPrefix(rest, d.rules.BoundaryWords) {
			return strings.TrimSpace(text[:loc[0]])
		}
	}
	return text
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Package classify decides whether an email is a job-application signal and,
// if so, which category it belongs to.
package classify

import (
	"strings"

	"github.com/jonathan/jobpulse/internal/normalize"
	"github.com/jonathan/jobpulse/internal/platform"
	"github.com/jonathan/jobpulse/internal/rules"
	"github.com/jonathan/jobpulse/internal/types"
)

// Reason explains a classification outcome.
type Reason string

// Classification outcomes.
const (
	ReasonKeyword       Reason = "keyword"
	ReasonATSFallback   Reason = "ats_fallback"
	ReasonRejectPattern Reason = "reject_pattern"
	ReasonNoMatch       Reason = "no_match"
)

// Result is the outcome of classifying one email. When Matched is false
// the email is not a job signal and Category is empty.
type Result struct {
	Category types.EmailType `json:"category,omitempty"`
	Matched  bool            `json:"matched"`
	Reason   Reason          `json:"reason"`
	// Signals lists every category whose keywords matched, in priority order.
	Signals []types.EmailType `json:"signals,omitempty"`
}

// Classifier applies the reject, keyword and ATS fallback rules.
type Classifier struct {
	rules     *rules.RuleSet
	platforms *platform.Identifier
}

// New creates a Classifier over a compiled rule set.
func New(rs *rules.RuleSet) *Classifier {
	return &Classifier{rules: rs, platforms: platform.New(rs)}
}

// Rejects reports whether the subject matches a digest, alert or newsletter
// pattern.
func (c *Classifier) Rejects(subject string) bool {
	return c.rules.Reject.MatchString(subject)
}

// Classify classifies an email from its raw body.
func (c *Classifier) Classify(sender, subject, body string) Result {
	return c.ClassifyPreview(sender, subject, normalize.Preview(body))
}

// ClassifyPreview classifies an email whose body has already been reduced
// to its plain-text preview.
func (c *Classifier) ClassifyPreview(sender, subject, preview string) Result {
	if c.Rejects(subject) {
		return Result{Reason: ReasonRejectPattern}
	}

	combined := strings.ToLower(subject + " " + preview)
	matched := make(map[types.EmailType]bool, len(c.rules.Priority))
	for _, category := range c.rules.Priority {
		if c.matches(category, combined) {
			matched[category] = true
		}
	}

	if len(matched) == 0 {
		if _, ok := c.platforms.DetectATS(sender); ok {
			return Result{
				Category: types.EmailTypeApplied,
				Matched:  true,
				Reason:   ReasonATSFallback,
				Signals:  []types.EmailType{},
			}
		}
		return Result{Reason: ReasonNoMatch}
	}

	category, _ := Resolve(c.rules.Priority, matched)
	signals := make([]types.EmailType, 0, len(matched))
	for _, p := range c.rules.Priority {
		if matched[p] {
			signals = append(signals, p)
		}
	}
	return Result{Category: category, Matched: true, Reason: ReasonKeyword, Signals: signals}
}

func (c *Classifier) matches(category types.EmailType, combined string) bool {
	for _, kw := range c.rules.Keywords[category] {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	for _, re := range c.rules.KeywordPatterns[category] {
		if re.MatchString(combined) {
			return true
		}
	}
	return false
}

// Resolve picks the highest-ranked matched category. The ranking is the
// explicit priority list from the rule base, highest first.
func Resolve(priority []types.EmailType, matched map[types.EmailType]bool) (types.EmailType, bool) {
	for _, category := range priority {
		if matched[category] {
			return category, true
		}
	}
	return "", false
}

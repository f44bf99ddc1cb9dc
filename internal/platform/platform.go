// Package platform maps sender addresses to the job board or applicant
// tracking system that sent them.
package platform

import (
	"strings"

	"github.com/jonathan/jobpulse/internal/rules"
)

// CompanyWebsite is assigned when neither a job board nor an ATS matched.
const CompanyWebsite = "Company Website"

// Identifier looks senders up in the rule base's platform tables.
type Identifier struct {
	rules *rules.RuleSet
}

// New creates an Identifier over a compiled rule set.
func New(rs *rules.RuleSet) *Identifier {
	return &Identifier{rules: rs}
}

// Identify returns the job board whose known sender address occurs in sender.
func (i *Identifier) Identify(sender string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(sender))
	if s == "" {
		return "", false
	}
	for _, p := range i.rules.Platforms {
		for _, addr := range p.Senders {
			if strings.Contains(s, addr) {
				return p.Name, true
			}
		}
	}
	return "", false
}

// DetectATS returns the ATS vendor whose domain occurs in sender.
func (i *Identifier) DetectATS(sender string) (string, bool) {
	s := strings.ToLower(sender)
	if s == "" {
		return "", false
	}
	for _, d := range i.rules.ATSDomains {
		if strings.Contains(s, d.Domain) {
			return d.Platform, true
		}
	}
	return "", false
}

// Assign returns the platform recorded on an extracted application:
// job board, then ATS vendor, then CompanyWebsite.
func (i *Identifier) Assign(sender string) string {
	if name, ok := i.Identify(sender); ok {
		return name
	}
	if name, ok := i.DetectATS(sender); ok {
		return name
	}
	return CompanyWebsite
}

// Known lists every platform name an application may carry, in rule order
// and without duplicates.
func (i *Identifier) Known() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, p := range i.rules.Platforms {
		add(p.Name)
	}
	for _, d := range i.rules.ATSDomains {
		add(d.Platform)
	}
	for _, name := range i.rules.OtherPlatforms {
		add(name)
	}
	add(CompanyWebsite)
	return out
}

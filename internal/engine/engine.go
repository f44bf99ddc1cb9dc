// Package engine turns raw emails into extracted application records. It
// wires the normalizer, classifier, platform identifier, extractor and
// disambiguator together over one compiled rule set.
package engine

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jonathan/jobpulse/internal/classify"
	"github.com/jonathan/jobpulse/internal/disambiguate"
	"github.com/jonathan/jobpulse/internal/extract"
	"github.com/jonathan/jobpulse/internal/logging"
	"github.com/jonathan/jobpulse/internal/metrics"
	"github.com/jonathan/jobpulse/internal/normalize"
	"github.com/jonathan/jobpulse/internal/platform"
	"github.com/jonathan/jobpulse/internal/rules"
	"github.com/jonathan/jobpulse/internal/types"
)

// Drop reasons reported in a Trace.
const (
	DropRejectPattern = "reject_pattern"
	DropNoMatch       = "no_match"
	DropNoFields      = "no_fields"
)

// Trace records how Parse reached its result.
type Trace struct {
	JobBoard       string          `json:"job_board,omitempty"`
	Classification classify.Result `json:"classification"`
	Fields         extract.Fields  `json:"fields"`
	Dropped        string          `json:"dropped,omitempty"`
}

// Engine parses emails. It is safe for concurrent use; Reload swaps the
// rule set atomically and in-flight calls finish on the set they started
// with.
type Engine struct {
	current atomic.Pointer[pipeline]
	logger  *zap.Logger
}

type pipeline struct {
	rules      *rules.RuleSet
	classifier *classify.Classifier
	platforms  *platform.Identifier
	extractor  *extract.Extractor
	d          *disambiguate.Disambiguator
}

func newPipeline(rs *rules.RuleSet) *pipeline {
	return &pipeline{
		rules:      rs,
		classifier: classify.New(rs),
		platforms:  platform.New(rs),
		extractor:  extract.New(rs),
		d:          disambiguate.New(rs),
	}
}

// New creates an Engine over rs. A nil logger disables logging.
func New(rs *rules.RuleSet, logger *zap.Logger) *Engine {
	e := &Engine{logger: logging.OrNop(logger)}
	e.current.Store(newPipeline(rs))
	return e
}

// Reload replaces the rule set used by subsequent calls.
func (e *Engine) Reload(rs *rules.RuleSet) {
	e.current.Store(newPipeline(rs))
	metrics.IncrementRulesReload()
	e.logger.Info("rule base reloaded", zap.String("version", rs.Version))
}

// Rules returns the rule set currently in use.
func (e *Engine) Rules() *rules.RuleSet {
	return e.current.Load().rules
}

// Platforms returns the platform identifier for the current rule set.
func (e *Engine) Platforms() *platform.Identifier {
	return e.current.Load().platforms
}

// Parse returns the extracted application for email, or false when the
// email is noise, unclassifiable, or carries no usable company or role.
func (e *Engine) Parse(email types.RawEmail) (*types.ExtractedApplication, bool) {
	app, _ := e.ParseTrace(email)
	return app, app != nil
}

// ParseTrace is Parse with a record of the intermediate decisions.
func (e *Engine) ParseTrace(email types.RawEmail) (*types.ExtractedApplication, Trace) {
	p := e.current.Load()
	var tr Trace

	tr.JobBoard, _ = p.platforms.Identify(email.Sender)

	preview := normalize.Preview(email.Body)
	tr.Classification = p.classifier.ClassifyPreview(email.Sender, email.Subject, preview)
	if !tr.Classification.Matched {
		if tr.Classification.Reason == classify.ReasonRejectPattern {
			tr.Dropped = DropRejectPattern
			metrics.IncrementEmailProcessed(metrics.OutcomeRejected)
		} else {
			tr.Dropped = DropNoMatch
			metrics.IncrementEmailProcessed(metrics.OutcomeNoMatch)
		}
		e.logger.Debug("email dropped",
			zap.String("reason", tr.Dropped),
			zap.String("sender", email.Sender),
			zap.String("subject", email.Subject),
		)
		return nil, tr
	}

	tr.Fields = p.extractor.Extract(&extract.Input{
		Sender:   email.Sender,
		Subject:  email.Subject,
		Text:     normalize.StripMarkup(email.Body),
		Body:     normalize.StripMarkupLines(email.Body),
		Preview:  preview,
		Platform: tr.JobBoard,
	})

	company, role, ok := p.refine(email.Sender, tr.Fields.Company, tr.Fields.Role)
	if !ok {
		tr.Dropped = DropNoFields
		metrics.IncrementEmailProcessed(metrics.OutcomeNoFields)
		e.logger.Debug("email dropped",
			zap.String("reason", tr.Dropped),
			zap.String("sender", email.Sender),
			zap.String("subject", email.Subject),
		)
		return nil, tr
	}

	category := tr.Classification.Category
	app := &types.ExtractedApplication{
		Company:     company,
		Role:        role,
		Platform:    tr.JobBoard,
		Status:      types.StatusFor(category),
		EmailType:   category,
		Location:    tr.Fields.Location,
		AppliedDate: email.ReceivedDate,
		Notes:       fmt.Sprintf("Auto-imported from Gmail (%s)", email.Sender),
	}
	if app.Platform == "" {
		app.Platform = p.platforms.Assign(email.Sender)
	}

	metrics.IncrementEmailProcessed(metrics.OutcomeExtracted)
	metrics.IncrementClassified(string(category))
	metrics.RecordExtractionTier("company", tr.Fields.CompanyTier)
	metrics.RecordExtractionTier("role", tr.Fields.RoleTier)
	e.logger.Debug("email parsed",
		zap.String("email_type", string(category)),
		zap.String("company", app.Company),
		zap.String("role", app.Role),
		zap.String("platform", app.Platform),
		zap.String("company_tier", tr.Fields.CompanyTier),
		zap.String("role_tier", tr.Fields.RoleTier),
	)
	return app, tr
}

// refine applies the post-extraction cleanup and returns the final company
// and role with sentinels filled in. ok is false when nothing usable is left.
func (p *pipeline) refine(sender, company, role string) (string, string, bool) {
	d := p.d
	if role != "" {
		role = d.CleanRole(role)
	}
	if company != "" && d.SenderDisplayName(company) {
		company = ""
	}
	if company != "" && d.CompanyGarbage(company) {
		company = p.extractor.CompanyFromSender(sender)
	}
	if role != "" && d.RoleGarbage(role) {
		role = ""
	}
	company, role = d.Resolve(company, role)
	company = d.FixCompanyName(company)

	if company == "" && role == "" {
		return "", "", false
	}
	if normalize.IsGarbage(company) && normalize.IsGarbage(role) {
		return "", "", false
	}
	if company == "" {
		company = types.UnknownCompany
	}
	if role == "" {
		role = types.UnknownRole
	}
	return company, role, true
}

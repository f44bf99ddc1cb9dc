// Package types provides type definitions for the structured data that flows
// through the jobpulse classification, extraction and reconciliation pipeline.
package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EmailType is the machine-readable classification tag of a job email.
type EmailType string

// Classification tags produced by the classifier.
const (
	EmailTypeApplied    EmailType = "applied"
	EmailTypeRejected   EmailType = "rejected"
	EmailTypeInterview  EmailType = "interview"
	EmailTypeAssessment EmailType = "assessment"
)

// Status is the human-facing status string stored on an application record.
type Status string

// Statuses the scanner can assign. The remaining statuses in AllStatuses are
// only ever set by manual edits.
const (
	StatusApplied            Status = "Applied"
	StatusRejected           Status = "Rejected"
	StatusAssessment         Status = "Assessment"
	StatusInterviewScheduled Status = "Interview Scheduled"
)

// Sentinel values used when extraction fails but classification succeeded.
const (
	UnknownCompany = "Unknown Company"
	UnknownRole    = "Unknown Role"
)

// SourceGmailScan tags status history entries written by automated scans.
const SourceGmailScan = "gmail_scan"

// DateLayout is the layout of applied/received dates.
const DateLayout = "2006-01-02"

// StatusFor maps a classification tag to its canonical status string.
func StatusFor(t EmailType) Status {
	switch t {
	case EmailTypeRejected:
		return StatusRejected
	case EmailTypeAssessment:
		return StatusAssessment
	case EmailTypeInterview:
		return StatusInterviewScheduled
	default:
		return StatusApplied
	}
}

// AllStatuses lists every status an application record may hold.
func AllStatuses() []Status {
	return []Status{
		StatusApplied, "Viewed", "In Review", StatusAssessment, "Phone Screen",
		StatusInterviewScheduled, "Interviewed", "Technical Round",
		"HR Round", "Offer Received", "Accepted", StatusRejected, "Withdrawn", "Ghosted",
	}
}

// RawEmail is one message as delivered by a mail transport.
type RawEmail struct {
	Sender       string `json:"sender"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	ReceivedDate string `json:"received_date"`
}

// ExtractedApplication is the engine output for a single accepted email.
// It is created once and never mutated afterwards.
type ExtractedApplication struct {
	Company     string    `json:"company" validate:"required,min=2,max=50"`
	Role        string    `json:"role" validate:"required,max=150"`
	Platform    string    `json:"platform" validate:"required"`
	Status      Status    `json:"status" validate:"required,oneof=Applied Rejected Assessment 'Interview Scheduled'"`
	EmailType   EmailType `json:"email_type" validate:"required,oneof=applied rejected interview assessment"`
	Location    string    `json:"location,omitempty"`
	AppliedDate string    `json:"applied_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string    `json:"notes"`
}

// Validate validates the ExtractedApplication using the validator.
func (a *ExtractedApplication) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}

// Key returns the batch dedup key: lowercased company and role joined by "_".
func (a *ExtractedApplication) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Company)) + "_" + strings.ToLower(strings.TrimSpace(a.Role))
}

// StatusHistoryEntry is one append-only entry in a record's status log.
type StatusHistoryEntry struct {
	Status Status    `json:"status"`
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
}

// ApplicationRecord is a persisted job application owned by a user.
type ApplicationRecord struct {
	ID            uuid.UUID            `json:"id"`
	UserID        string               `json:"user_id"`
	Company       string               `json:"company"`
	Role          string               `json:"role"`
	Platform      string               `json:"platform"`
	Status        Status               `json:"status"`
	Location      string               `json:"location,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	AppliedDate   string               `json:"applied_date"`
	UpdatedDate   time.Time            `json:"updated_date"`
	InterviewDate string               `json:"interview_date,omitempty"`
	ResponseDate  string               `json:"response_date,omitempty"`
	StatusHistory []StatusHistoryEntry `json:"status_history"`
}

// AppendStatus sets the record's status and appends the matching history entry.
func (r *ApplicationRecord) AppendStatus(status Status, at time.Time, source string) {
	r.Status = status
	r.UpdatedDate = at
	r.StatusHistory = append(r.StatusHistory, StatusHistoryEntry{Status: status, Date: at, Source: source})
}

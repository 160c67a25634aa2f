package model

import (
	"time"

	"mirdata/core/dataset"

	"github.com/google/uuid"
)

// Issue kinds stored in ValidationIssue.Kind.
const (
	IssueMissing         = "missing"
	IssueInvalidChecksum = "invalid_checksum"
)

// ValidationRun is one recorded validation of a dataset on disk.
type ValidationRun struct {
	ID               string            `json:"id" gorm:"primaryKey;size:36"`
	Dataset          string            `json:"dataset" gorm:"size:100;index;not null"`
	Version          string            `json:"version" gorm:"size:50"`
	DataHome         string            `json:"dataHome" gorm:"size:1024"`
	Missing          int               `json:"missing"`
	InvalidChecksums int               `json:"invalidChecksums"`
	OK               bool              `json:"ok" gorm:"index"`
	StartedAt        time.Time         `json:"startedAt" gorm:"index"`
	FinishedAt       time.Time         `json:"finishedAt"`
	Issues           []ValidationIssue `json:"issues,omitempty" gorm:"foreignKey:RunID"`
}

// TableName sets the table name.
func (ValidationRun) TableName() string {
	return "validation_runs"
}

// ValidationIssue is one missing or corrupt file found by a run.
type ValidationIssue struct {
	ID      int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID   string `json:"runId" gorm:"size:36;index;not null"`
	Kind    string `json:"kind" gorm:"size:20;not null"` // missing, invalid_checksum
	TrackID string `json:"trackId,omitempty" gorm:"size:255"`
	Role    string `json:"role" gorm:"size:100"`
	Path    string `json:"path" gorm:"size:1024"`
}

// TableName sets the table name.
func (ValidationIssue) TableName() string {
	return "validation_issues"
}

// NewValidationRun records report under a fresh run id.
func NewValidationRun(d *dataset.Dataset, report *dataset.Report, started, finished time.Time) *ValidationRun {
	run := &ValidationRun{
		ID:               uuid.NewString(),
		Dataset:          d.Name(),
		Version:          d.Version(),
		DataHome:         d.DataHome(),
		Missing:          len(report.Missing),
		InvalidChecksums: len(report.InvalidChecksums),
		OK:               report.OK(),
		StartedAt:        started,
		FinishedAt:       finished,
	}
	for _, is := range report.Missing {
		run.Issues = append(run.Issues, newIssue(run.ID, IssueMissing, is))
	}
	for _, is := range report.InvalidChecksums {
		run.Issues = append(run.Issues, newIssue(run.ID, IssueInvalidChecksum, is))
	}
	return run
}

func newIssue(runID, kind string, is dataset.FileIssue) ValidationIssue {
	return ValidationIssue{
		RunID:   runID,
		Kind:    kind,
		TrackID: is.TrackID,
		Role:    is.Role,
		Path:    is.Path,
	}
}

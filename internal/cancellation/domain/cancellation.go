// Package domain defines the cancellation lifecycle of a tenant.
package domain

import "time"

// Stage is the furthest lifecycle step a cancellation has completed.
type Stage string

const (
	StageCreated               Stage = "created"
	StageDownloadRequested     Stage = "download_requested"
	StageMovedToLongterm       Stage = "moved_to_longterm"
	StageCSVCreated            Stage = "csv_created"
	StageDownloadLinkRequested Stage = "download_link_requested"
	StageDataDeleted           Stage = "data_deleted"
)

// Step names a completion timestamp of the lifecycle. Each step is stamped at most once.
type Step string

const (
	StepDownloadRequested       Step = "download_requested"
	StepMovedToLongterm         Step = "moved_to_longterm_archive"
	StepCSVCreated              Step = "csv_created"
	StepDirectoryEntriesDeleted Step = "directory_entries_deleted"
	StepDataDeleted             Step = "data_deleted"
)

// Cancellation tracks the retention pipeline of one cancelled tenant.
type Cancellation struct {
	TenantID         string
	CancellationDate time.Time
	FinalDeletion    time.Time

	DownloadRequested      *time.Time
	MovedToLongtermArchive *time.Time

	CsvCreated        *time.Time
	BucketObjectID    string
	CsvHash           string
	CsvEntityCount    int64
	CsvSize           int64
	CsvFailedAt       *time.Time
	CsvFailureMessage string

	DownloadLinkRequested   *time.Time
	DownloadLinkRequestedBy string

	DirectoryEntriesDeleted *time.Time
	DataDeleted             *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a cancellation whose final deletion falls retention after cancellationDate.
func New(tenantID string, cancellationDate time.Time, retention time.Duration, now time.Time) *Cancellation {
	date := cancellationDate.UTC()
	return &Cancellation{
		TenantID:         tenantID,
		CancellationDate: date,
		FinalDeletion:    date.Add(retention),
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}

// Stage derives the lifecycle stage from the completion timestamps.
func (c *Cancellation) Stage() Stage {
	switch {
	case c.DataDeleted != nil:
		return StageDataDeleted
	case c.DownloadLinkRequested != nil:
		return StageDownloadLinkRequested
	case c.CsvCreated != nil:
		return StageCSVCreated
	case c.MovedToLongtermArchive != nil:
		return StageMovedToLongterm
	case c.DownloadRequested != nil:
		return StageDownloadRequested
	default:
		return StageCreated
	}
}

// CSVFailed reports whether the last export attempt failed and has not succeeded since.
func (c *Cancellation) CSVFailed() bool {
	return c.CsvCreated == nil && c.CsvFailedAt != nil
}

// CSVExport describes an uploaded export file.
type CSVExport struct {
	ObjectID    string
	Hash        string
	EntityCount int64
	Size        int64
}

// Package repository persists cancellations in PostgreSQL and MySQL.
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/allisson/archivist/internal/cancellation/domain"
)

const cancellationColumns = `tenant_id, cancellation_date, final_deletion, download_requested,
			  moved_to_longterm_archive, csv_created, bucket_object_id, csv_hash, csv_entity_count, csv_size,
			  csv_failed_at, csv_failure_message, download_link_requested, download_link_requested_by,
			  directory_entries_deleted, data_deleted, created_at, updated_at`

// pendingQuery selects the cancellations a job still has to process: the
// compared column must be due and the step itself must be unstamped.
type pendingQuery struct {
	dueColumn string
	condition string
}

var pendingQueries = map[domain.Step]pendingQuery{
	domain.StepDownloadRequested: {
		dueColumn: "final_deletion",
		condition: "download_requested IS NULL",
	},
	domain.StepMovedToLongterm: {
		dueColumn: "download_requested",
		condition: "moved_to_longterm_archive IS NULL",
	},
	domain.StepCSVCreated: {
		dueColumn: "moved_to_longterm_archive",
		condition: "csv_created IS NULL",
	},
	domain.StepDirectoryEntriesDeleted: {
		dueColumn: "cancellation_date",
		condition: "directory_entries_deleted IS NULL",
	},
	domain.StepDataDeleted: {
		dueColumn: "final_deletion",
		condition: "csv_created IS NOT NULL AND data_deleted IS NULL",
	},
}

// stepGuards lists the predecessor each simple step requires. The CSV step carries
// extra fields and has its own update.
var stepGuards = map[domain.Step]string{
	domain.StepDownloadRequested:       "",
	domain.StepMovedToLongterm:         " AND download_requested IS NOT NULL",
	domain.StepDirectoryEntriesDeleted: "",
	domain.StepDataDeleted:             " AND csv_created IS NOT NULL",
}

func pendingFor(step domain.Step) (pendingQuery, error) {
	q, ok := pendingQueries[step]
	if !ok {
		return pendingQuery{}, fmt.Errorf("unknown cancellation step %q", step)
	}
	return q, nil
}

func guardFor(step domain.Step) (string, error) {
	guard, ok := stepGuards[step]
	if !ok {
		return "", fmt.Errorf("step %q cannot be marked directly", step)
	}
	return guard, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCancellation(row rowScanner) (*domain.Cancellation, error) {
	var (
		c                                                 domain.Cancellation
		downloadRequested, moved, csvCreated, csvFailedAt sql.NullTime
		linkRequested, directoryDeleted, dataDeleted      sql.NullTime
	)
	err := row.Scan(
		&c.TenantID,
		&c.CancellationDate,
		&c.FinalDeletion,
		&downloadRequested,
		&moved,
		&csvCreated,
		&c.BucketObjectID,
		&c.CsvHash,
		&c.CsvEntityCount,
		&c.CsvSize,
		&csvFailedAt,
		&c.CsvFailureMessage,
		&linkRequested,
		&c.DownloadLinkRequestedBy,
		&directoryDeleted,
		&dataDeleted,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DownloadRequested = timePtr(downloadRequested)
	c.MovedToLongtermArchive = timePtr(moved)
	c.CsvCreated = timePtr(csvCreated)
	c.CsvFailedAt = timePtr(csvFailedAt)
	c.DownloadLinkRequested = timePtr(linkRequested)
	c.DirectoryEntriesDeleted = timePtr(directoryDeleted)
	c.DataDeleted = timePtr(dataDeleted)
	return &c, nil
}

func collectCancellations(rows *sql.Rows) ([]*domain.Cancellation, error) {
	defer func() {
		_ = rows.Close()
	}()

	var cancellations []*domain.Cancellation
	for rows.Next() {
		c, err := scanCancellation(rows)
		if err != nil {
			return nil, err
		}
		cancellations = append(cancellations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cancellations, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

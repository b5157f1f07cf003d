package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/allisson/archivist/internal/cancellation/domain"
	cancellationUsecase "github.com/allisson/archivist/internal/cancellation/usecase"
)

// cancellationView is the output form of a cancellation.
type cancellationView struct {
	TenantID                string     `json:"tenant_id"`
	Stage                   string     `json:"stage"`
	CancellationDate        time.Time  `json:"cancellation_date"`
	FinalDeletion           time.Time  `json:"final_deletion"`
	DownloadRequested       *time.Time `json:"download_requested,omitempty"`
	MovedToLongtermArchive  *time.Time `json:"moved_to_longterm_archive,omitempty"`
	CsvCreated              *time.Time `json:"csv_created,omitempty"`
	BucketObjectID          string     `json:"bucket_object_id,omitempty"`
	CsvHash                 string     `json:"csv_hash,omitempty"`
	CsvEntityCount          int64      `json:"csv_entity_count,omitempty"`
	CsvSize                 int64      `json:"csv_size,omitempty"`
	CsvFailedAt             *time.Time `json:"csv_failed_at,omitempty"`
	CsvFailureMessage       string     `json:"csv_failure_message,omitempty"`
	DownloadLinkRequested   *time.Time `json:"download_link_requested,omitempty"`
	DownloadLinkRequestedBy string     `json:"download_link_requested_by,omitempty"`
	DirectoryEntriesDeleted *time.Time `json:"directory_entries_deleted,omitempty"`
	DataDeleted             *time.Time `json:"data_deleted,omitempty"`
}

func newCancellationView(c *domain.Cancellation) cancellationView {
	return cancellationView{
		TenantID:                c.TenantID,
		Stage:                   string(c.Stage()),
		CancellationDate:        c.CancellationDate,
		FinalDeletion:           c.FinalDeletion,
		DownloadRequested:       c.DownloadRequested,
		MovedToLongtermArchive:  c.MovedToLongtermArchive,
		CsvCreated:              c.CsvCreated,
		BucketObjectID:          c.BucketObjectID,
		CsvHash:                 c.CsvHash,
		CsvEntityCount:          c.CsvEntityCount,
		CsvSize:                 c.CsvSize,
		CsvFailedAt:             c.CsvFailedAt,
		CsvFailureMessage:       c.CsvFailureMessage,
		DownloadLinkRequested:   c.DownloadLinkRequested,
		DownloadLinkRequestedBy: c.DownloadLinkRequestedBy,
		DirectoryEntriesDeleted: c.DirectoryEntriesDeleted,
		DataDeleted:             c.DataDeleted,
	}
}

// RunCreateCancellation registers the cancellation of a tenant. Running it again
// for the same tenant prints the existing cancellation unchanged.
func RunCreateCancellation(
	ctx context.Context,
	cancellationUseCase cancellationUsecase.CancellationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID, date, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	cancellationDate, err := parseDate(date)
	if err != nil {
		return fmt.Errorf("invalid cancellation date: %w", err)
	}

	logger.Info("creating cancellation",
		slog.String("tenant_id", tenantID),
		slog.Time("cancellation_date", cancellationDate),
	)

	cancellation, err := cancellationUseCase.Create(ctx, cancellationUsecase.CreateCancellationInput{
		TenantID:         tenantID,
		CancellationDate: cancellationDate,
	})
	if err != nil {
		return fmt.Errorf("failed to create cancellation: %w", err)
	}

	logger.Info("cancellation registered",
		slog.String("tenant_id", cancellation.TenantID),
		slog.Time("final_deletion", cancellation.FinalDeletion),
	)

	return outputCancellation(writer, cancellation, format)
}

// RunGetCancellation prints the cancellation of a tenant.
func RunGetCancellation(
	ctx context.Context,
	cancellationUseCase cancellationUsecase.CancellationUseCase,
	writer io.Writer,
	tenantID, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	cancellation, err := cancellationUseCase.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to get cancellation: %w", err)
	}

	return outputCancellation(writer, cancellation, format)
}

// RunListCancellations prints one page of cancellations ordered by cancellation date.
func RunListCancellations(
	ctx context.Context,
	cancellationUseCase cancellationUsecase.CancellationUseCase,
	writer io.Writer,
	offset, limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	cancellations, err := cancellationUseCase.List(ctx, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to list cancellations: %w", err)
	}

	if format == "json" {
		views := make([]cancellationView, 0, len(cancellations))
		for _, c := range cancellations {
			views = append(views, newCancellationView(c))
		}
		return writeJSON(writer, views)
	}

	if len(cancellations) == 0 {
		_, _ = fmt.Fprintln(writer, "No cancellations found")
		return nil
	}
	for _, c := range cancellations {
		_, _ = fmt.Fprintf(writer, "%-36s  %-24s  cancelled %s  final deletion %s\n",
			c.TenantID,
			c.Stage(),
			c.CancellationDate.Format(time.DateOnly),
			c.FinalDeletion.Format(time.DateOnly),
		)
	}
	return nil
}

// RunRequestDownloadLink prints a presigned link to the export of a tenant. The
// first request is recorded with userID.
func RunRequestDownloadLink(
	ctx context.Context,
	cancellationUseCase cancellationUsecase.CancellationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID, userID string,
) error {
	if userID == "" {
		return fmt.Errorf("user is required")
	}

	url, err := cancellationUseCase.RequestDownloadLink(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to request download link: %w", err)
	}

	logger.Info("download link issued",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
	)

	_, _ = fmt.Fprintln(writer, url)
	return nil
}

func outputCancellation(writer io.Writer, c *domain.Cancellation, format string) error {
	if format == "json" {
		return writeJSON(writer, newCancellationView(c))
	}

	_, _ = fmt.Fprintf(writer, "Tenant:            %s\n", c.TenantID)
	_, _ = fmt.Fprintf(writer, "Stage:             %s\n", c.Stage())
	_, _ = fmt.Fprintf(writer, "Cancellation date: %s\n", c.CancellationDate.Format(time.RFC3339))
	_, _ = fmt.Fprintf(writer, "Final deletion:    %s\n", c.FinalDeletion.Format(time.RFC3339))
	writeStamp(writer, "Download requested", c.DownloadRequested)
	writeStamp(writer, "Archived", c.MovedToLongtermArchive)
	writeStamp(writer, "CSV created", c.CsvCreated)
	if c.CsvCreated != nil {
		_, _ = fmt.Fprintf(writer, "CSV object:        %s (%s, %d records)\n",
			c.BucketObjectID,
			humanize.Bytes(uint64(max(c.CsvSize, 0))),
			c.CsvEntityCount,
		)
		_, _ = fmt.Fprintf(writer, "CSV sha256:        %s\n", c.CsvHash)
	}
	if c.CSVFailed() {
		_, _ = fmt.Fprintf(writer, "CSV failed:        %s (%s)\n",
			c.CsvFailedAt.Format(time.RFC3339),
			c.CsvFailureMessage,
		)
	}
	writeStamp(writer, "Link requested", c.DownloadLinkRequested)
	if c.DownloadLinkRequestedBy != "" {
		_, _ = fmt.Fprintf(writer, "Link requested by: %s\n", c.DownloadLinkRequestedBy)
	}
	writeStamp(writer, "Directory removed", c.DirectoryEntriesDeleted)
	writeStamp(writer, "Data deleted", c.DataDeleted)
	return nil
}

func writeStamp(writer io.Writer, label string, at *time.Time) {
	if at == nil {
		return
	}
	_, _ = fmt.Fprintf(writer, "%-19s%s\n", label+":", at.Format(time.RFC3339))
}

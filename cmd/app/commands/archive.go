package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	archiveDomain "github.com/allisson/archivist/internal/archive/domain"
	archiveUsecase "github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/batch"
)

// RunMigrateArchive archives every short-term record not updated for olderThan.
func RunMigrateArchive(
	ctx context.Context,
	archiveUseCase archiveUsecase.ArchiveUseCase,
	logger *slog.Logger,
	writer io.Writer,
	olderThan time.Duration,
) error {
	if olderThan <= 0 {
		return fmt.Errorf("older-than must be positive, got %s", olderThan)
	}

	logger.Info("migrating records to the archive", slog.Duration("older_than", olderThan))

	result, err := archiveUseCase.MigrateEligible(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to migrate records: %w", err)
	}

	outputBatchResult(writer, result)
	return batchError(result)
}

// RunMigrateTenant archives every short-term record of a tenant and prints the
// record counts of both stores afterwards.
func RunMigrateTenant(
	ctx context.Context,
	archiveUseCase archiveUsecase.ArchiveUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
) error {
	if tenantID == "" {
		return fmt.Errorf("tenant is required")
	}

	logger.Info("migrating tenant to the archive", slog.String("tenant_id", tenantID))

	result, err := archiveUseCase.MigrateTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to migrate tenant: %w", err)
	}
	outputBatchResult(writer, result)

	count, err := archiveUseCase.CountByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to count tenant records: %w", err)
	}
	_, _ = fmt.Fprintf(writer, "Short-term:  %d\n", count.ShortTerm)
	_, _ = fmt.Fprintf(writer, "Archived:    %d\n", count.Archived)

	return batchError(result)
}

// RunArchiveLookup prints decrypted archive payloads, either the latest version
// of one record or every record matching a person's birthday and surname.
//
// Security Note: the output contains personal data in clear.
func RunArchiveLookup(
	ctx context.Context,
	archiveUseCase archiveUsecase.ArchiveUseCase,
	logger *slog.Logger,
	writer io.Writer,
	hashedGUID, birthday, surname string,
) error {
	var payloads []*archiveDomain.ArchivePayload

	switch {
	case hashedGUID != "" && (birthday != "" || surname != ""):
		return fmt.Errorf("use either --guid or --birthday with --surname")
	case hashedGUID != "":
		logger.Info("looking up archived record", slog.String("hashed_guid", hashedGUID))

		payload, err := archiveUseCase.GetDecrypted(ctx, hashedGUID)
		if err != nil {
			return fmt.Errorf("failed to look up archived record: %w", err)
		}
		payloads = append(payloads, payload)
	case birthday != "" && surname != "":
		birthDate, err := time.Parse(time.DateOnly, birthday)
		if err != nil {
			return fmt.Errorf("invalid birthday (expected YYYY-MM-DD): %s", birthday)
		}

		// The surname is never logged
		logger.Info("looking up archived records by identifier")

		payloads, err = archiveUseCase.FindByIdentifier(ctx, birthDate, surname)
		if err != nil {
			return fmt.Errorf("failed to look up archived records: %w", err)
		}
	default:
		return fmt.Errorf("use either --guid or --birthday with --surname")
	}

	logger.Info("archive lookup completed", slog.Int("records", len(payloads)))
	return writeJSON(writer, payloads)
}

func outputBatchResult(writer io.Writer, result batch.Result) {
	_, _ = fmt.Fprintf(writer, "Processed:   %d\n", result.Processed)
	_, _ = fmt.Fprintf(writer, "Failed:      %d\n", result.Failed)
	_, _ = fmt.Fprintf(writer, "Batches:     %d\n", result.Batches)
	if result.Truncated {
		_, _ = fmt.Fprintln(writer, "Stopped at the batch limit, run again to continue")
	}
}

// batchError turns per-record failures into a non-zero exit.
func batchError(result batch.Result) error {
	if result.Failed > 0 {
		return fmt.Errorf("%d record(s) failed, see logs", result.Failed)
	}
	return nil
}

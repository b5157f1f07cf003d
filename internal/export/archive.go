package export

import (
	"strconv"
	"time"

	"github.com/allisson/archivist/internal/archive/domain"
)

// SchemaVersion identifies the column layout of ArchiveColumns.
const SchemaVersion = 1

// ArchiveColumns is the header row of a cancellation export, in order.
var ArchiveColumns = []string{
	"hashed_guid",
	"version",
	"archived_at",
	"tenant_id",
	"poc_id",
	"test_result",
	"test_brand_id",
	"test_brand_name",
	"first_name",
	"last_name",
	"birthday",
	"sex",
	"email",
	"phone_number",
	"street",
	"house_number",
	"zip_code",
	"city",
	"created_at",
	"updated_at",
}

// ArchiveRow renders one archived record in ArchiveColumns order.
func ArchiveRow(record *domain.ArchivedRecord, payload *domain.ArchivePayload) []string {
	return []string{
		record.HashedGUID,
		strconv.FormatUint(uint64(record.Version), 10),
		formatTime(record.CreatedAt),
		payload.TenantID,
		payload.PocID,
		strconv.Itoa(payload.TestResult),
		payload.TestBrandID,
		payload.TestBrandName,
		payload.FirstName,
		payload.LastName,
		payload.Birthday,
		payload.Sex,
		payload.Email,
		payload.PhoneNumber,
		payload.Street,
		payload.HouseNumber,
		payload.ZipCode,
		payload.City,
		formatTime(payload.CreatedAt),
		formatTime(payload.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

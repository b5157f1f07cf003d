// Package repository implements persistence for short-term test records and their
// encrypted archive versions. Repositories support both PostgreSQL and MySQL.
package repository

import (
	"database/sql"

	"github.com/allisson/archivist/internal/archive/domain"
)

const testRecordColumns = `hashed_guid, tenant_id, poc_id, test_result, test_brand_id, test_brand_name,
			  first_name, last_name, birthday, sex, email, phone_number, street, house_number,
			  zip_code, city, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestRecord(row rowScanner) (*domain.ShortTermRecord, error) {
	var record domain.ShortTermRecord
	var birthday sql.NullTime

	err := row.Scan(
		&record.HashedGUID,
		&record.TenantID,
		&record.PocID,
		&record.TestResult,
		&record.TestBrandID,
		&record.TestBrandName,
		&record.FirstName,
		&record.LastName,
		&birthday,
		&record.Sex,
		&record.Email,
		&record.PhoneNumber,
		&record.Street,
		&record.HouseNumber,
		&record.ZipCode,
		&record.City,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birthday.Valid {
		record.Birthday = birthday.Time
	}
	return &record, nil
}

func collectTestRecords(rows *sql.Rows) ([]*domain.ShortTermRecord, error) {
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*domain.ShortTermRecord, 0)
	for rows.Next() {
		record, err := scanTestRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

package domain

import (
	"encoding/json"
	"time"
)

// PayloadSchemaVersion is bumped whenever ArchivePayload changes shape.
const PayloadSchemaVersion = 1

// birthdayLayout is the calendar date format used for birthdays in payloads.
const birthdayLayout = "2006-01-02"

// ArchivePayload is the plaintext that gets encrypted into an ArchivedRecord.
// Field order is fixed so the JSON encoding is stable for equal inputs.
type ArchivePayload struct {
	SchemaVersion int       `json:"schemaVersion"`
	HashedGUID    string    `json:"hashedGuid"`
	TenantID      string    `json:"tenantId"`
	PocID         string    `json:"pocId"`
	TestResult    int       `json:"testResult"`
	TestBrandID   string    `json:"testBrandId"`
	TestBrandName string    `json:"testBrandName"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Birthday      string    `json:"birthday"`
	Sex           string    `json:"sex"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phoneNumber"`
	Street        string    `json:"street"`
	HouseNumber   string    `json:"houseNumber"`
	ZipCode       string    `json:"zipCode"`
	City          string    `json:"city"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewArchivePayload copies the personal fields of record.
func NewArchivePayload(record *ShortTermRecord) *ArchivePayload {
	birthday := ""
	if !record.Birthday.IsZero() {
		birthday = record.Birthday.Format(birthdayLayout)
	}
	return &ArchivePayload{
		SchemaVersion: PayloadSchemaVersion,
		HashedGUID:    record.HashedGUID,
		TenantID:      record.TenantID,
		PocID:         record.PocID,
		TestResult:    record.TestResult,
		TestBrandID:   record.TestBrandID,
		TestBrandName: record.TestBrandName,
		FirstName:     record.FirstName,
		LastName:      record.LastName,
		Birthday:      birthday,
		Sex:           record.Sex,
		Email:         record.Email,
		PhoneNumber:   record.PhoneNumber,
		Street:        record.Street,
		HouseNumber:   record.HouseNumber,
		ZipCode:       record.ZipCode,
		City:          record.City,
		CreatedAt:     record.CreatedAt.UTC(),
		UpdatedAt:     record.UpdatedAt.UTC(),
	}
}

// Marshal returns the canonical JSON encoding.
func (p *ArchivePayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPayload decodes a payload produced by Marshal.
func UnmarshalPayload(data []byte) (*ArchivePayload, error) {
	var payload ArchivePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	return &payload, nil
}

// Package domain defines the short-term test records and their encrypted long-term archive form.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
)

// ShortTermRecord is a personal test record in the short-term store. The
// serving layer owns it; the archive pipeline only reads and deletes it.
type ShortTermRecord struct {
	HashedGUID    string
	TenantID      string
	PocID         string
	TestResult    int
	TestBrandID   string
	TestBrandName string
	FirstName     string
	LastName      string
	Birthday      time.Time
	Sex           string
	Email         string
	PhoneNumber   string
	Street        string
	HouseNumber   string
	ZipCode       string
	City          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ArchivedRecord is the encrypted long-term form of a ShortTermRecord. Rows are
// immutable; only final deletion removes them.
type ArchivedRecord struct {
	ID              uuid.UUID
	HashedGUID      string
	Identifier      string
	TenantHash      string
	PocHash         string
	Ciphertext      []byte
	EncryptedSecret []byte
	PublicKey       string
	SecretAlgorithm cryptoDomain.Algorithm
	KeyAlgorithm    cryptoDomain.KeyAlgorithm
	Version         uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

package service

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"

	"github.com/allisson/archivist/internal/archive/domain"
	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
)

// HashAlgorithm names the digest used for anonymized identifiers.
type HashAlgorithm string

const (
	SHA256   HashAlgorithm = "SHA-256"
	SHA384   HashAlgorithm = "SHA-384"
	SHA512   HashAlgorithm = "SHA-512"
	SHA3_256 HashAlgorithm = "SHA3-256"
)

// surnameRunes is how many leading surname characters enter the token.
const surnameRunes = 2

// IdentifierService derives the anonymized identifiers used to look up archived
// records without storing any personal data in clear.
type IdentifierService struct {
	algorithm HashAlgorithm
	newHash   func() hash.Hash
}

// NewIdentifierService returns ErrUnsupportedAlgorithm for unknown digests.
func NewIdentifierService(algorithm string) (*IdentifierService, error) {
	var newHash func() hash.Hash
	switch HashAlgorithm(algorithm) {
	case SHA256:
		newHash = sha256.New
	case SHA384:
		newHash = sha512.New384
	case SHA512:
		newHash = sha512.New
	case SHA3_256:
		newHash = sha3.New256
	default:
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrUnsupportedAlgorithm, algorithm)
	}
	return &IdentifierService{algorithm: HashAlgorithm(algorithm), newHash: newHash}, nil
}

// Algorithm returns the configured digest.
func (s *IdentifierService) Algorithm() HashAlgorithm {
	return s.algorithm
}

// Token returns the clear identifier: day and month of birth followed by the
// first two characters of the surname as stored, upper-cased. 2000-01-01 and
// "Miller" give "0101MI". The surname is not trimmed: existing identifiers were
// derived from the raw value.
func Token(birthday time.Time, surname string) (string, error) {
	if birthday.IsZero() || surname == "" {
		return "", domain.ErrMissingIdentity
	}
	prefix := surname
	if utf8.RuneCountInString(surname) > surnameRunes {
		runes := []rune(surname)
		prefix = string(runes[:surnameRunes])
	}
	return fmt.Sprintf("%02d%02d%s", birthday.Day(), int(birthday.Month()), strings.ToUpper(prefix)), nil
}

// Derive returns hex(hash(pepper || token)) for the given person.
func (s *IdentifierService) Derive(birthday time.Time, surname string, pepper []byte) (string, error) {
	token, err := Token(birthday, surname)
	if err != nil {
		return "", err
	}
	return s.digest(pepper, token), nil
}

// HashTenant returns the peppered hash stored in place of a tenant id.
func (s *IdentifierService) HashTenant(tenantID string, pepper []byte) string {
	return s.digest(pepper, tenantID)
}

// HashPoc returns the peppered hash stored in place of a point-of-care id.
func (s *IdentifierService) HashPoc(pocID string, pepper []byte) string {
	return s.digest(pepper, pocID)
}

func (s *IdentifierService) digest(pepper []byte, value string) string {
	h := s.newHash()
	h.Write(pepper)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

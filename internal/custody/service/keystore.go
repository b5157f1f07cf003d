// Package service implements the key custody backends: a local PEM keystore, an
// HSM reached through gocloud.dev/secrets and the HashiCorp Vault transit engine.
package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	mathrand "math/rand/v2"
	"os"
	"strings"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	cryptoService "github.com/allisson/archivist/internal/crypto/service"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
)

// AliasHeader is the PEM header naming a keystore entry.
const AliasHeader = "Alias"

// KeystoreEntry is one RSA key pair loaded from the keystore file.
type KeystoreEntry struct {
	Alias      string
	PrivateKey *rsa.PrivateKey
	PublicKey  *custodyDomain.PublicKey
}

// KeystoreCustody keeps private keys in process memory.
type KeystoreCustody struct {
	entries   []*KeystoreEntry
	byEncoded map[string]*KeystoreEntry
	pepper    []byte
}

// NewKeystoreCustody indexes entries by their encoded public key.
func NewKeystoreCustody(entries []*KeystoreEntry, pepper []byte) *KeystoreCustody {
	byEncoded := make(map[string]*KeystoreEntry, len(entries))
	for _, entry := range entries {
		byEncoded[entry.PublicKey.Encoded] = entry
	}
	return &KeystoreCustody{
		entries:   entries,
		byEncoded: byEncoded,
		pepper:    pepper,
	}
}

// PublicKey returns a uniformly random entry, spreading new records across all keys.
func (k *KeystoreCustody) PublicKey(ctx context.Context) (*custodyDomain.PublicKey, error) {
	if len(k.entries) == 0 {
		return nil, custodyDomain.ErrNoKeys
	}
	return k.entries[mathrand.IntN(len(k.entries))].PublicKey, nil
}

// Pepper returns the configured pepper.
func (k *KeystoreCustody) Pepper(ctx context.Context) ([]byte, error) {
	if len(k.pepper) == 0 {
		return nil, custodyDomain.ErrPepperUnavailable
	}
	return k.pepper, nil
}

// Decrypt unwraps ciphertext with the entry owning encodedPublicKey.
func (k *KeystoreCustody) Decrypt(
	ctx context.Context,
	ciphertext []byte,
	encodedPublicKey string,
) ([]byte, error) {
	entry, ok := k.byEncoded[encodedPublicKey]
	if !ok {
		return nil, custodyDomain.ErrKeyNotFound
	}
	return cryptoService.UnwrapSecret(entry.PrivateKey, ciphertext)
}

// Encrypt wraps plaintext with the entry owning encodedPublicKey.
func (k *KeystoreCustody) Encrypt(
	ctx context.Context,
	plaintext []byte,
	encodedPublicKey string,
) ([]byte, error) {
	entry, ok := k.byEncoded[encodedPublicKey]
	if !ok {
		return nil, custodyDomain.ErrKeyNotFound
	}
	return cryptoService.WrapSecret(&entry.PrivateKey.PublicKey, plaintext)
}

// LoadKeystore reads and parses the keystore file at path.
func LoadKeystore(path, aliasPrefix string) ([]*KeystoreEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	return ParseKeystore(data, aliasPrefix)
}

// ParseKeystore parses every private key block whose alias starts with aliasPrefix.
// Blocks of other types or with other aliases are ignored.
func ParseKeystore(data []byte, aliasPrefix string) ([]*KeystoreEntry, error) {
	var entries []*KeystoreEntry
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		alias := block.Headers[AliasHeader]
		if !strings.HasPrefix(alias, aliasPrefix) {
			continue
		}

		var privateKey *rsa.PrivateKey
		switch block.Type {
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse keystore entry %q: %w", alias, err)
			}
			rsaKey, ok := key.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("keystore entry %q is not an RSA key", alias)
			}
			privateKey = rsaKey
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse keystore entry %q: %w", alias, err)
			}
			privateKey = key
		default:
			continue
		}

		entry, err := newKeystoreEntry(alias, privateKey)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GenerateKeystoreEntry creates a new RSA key and returns it PEM encoded with its alias header.
func GenerateKeystoreEntry(alias string, bits int) ([]byte, *KeystoreEntry, error) {
	if bits < 2048 {
		return nil, nil, fmt.Errorf("rsa key size must be at least 2048 bits, got %d", bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal rsa key: %w", err)
	}
	entry, err := newKeystoreEntry(alias, key)
	if err != nil {
		return nil, nil, err
	}
	encoded := pem.EncodeToMemory(&pem.Block{
		Type:    "PRIVATE KEY",
		Headers: map[string]string{AliasHeader: alias},
		Bytes:   der,
	})
	return encoded, entry, nil
}

func newKeystoreEntry(alias string, key *rsa.PrivateKey) (*KeystoreEntry, error) {
	encoded, err := cryptoService.EncodePublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeystoreEntry{
		Alias:      alias,
		PrivateKey: key,
		PublicKey: &custodyDomain.PublicKey{
			Key:       &key.PublicKey,
			Encoded:   encoded,
			Label:     alias,
			Algorithm: cryptoDomain.RSAOAEPSHA256,
		},
	}, nil
}

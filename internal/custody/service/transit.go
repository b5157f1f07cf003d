package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	vault "github.com/hashicorp/vault/api"
	"gocloud.dev/secrets/hashivault"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	cryptoService "github.com/allisson/archivist/internal/crypto/service"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
	"github.com/allisson/archivist/internal/errors"
)

// TransitConfig configures the Vault transit backend.
type TransitConfig struct {
	KeyName        string
	PepperPath     string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// transitKeySet is the public half of every version of the named transit key.
type transitKeySet struct {
	latest   int
	byVer    map[int]*custodyDomain.PublicKey
	versions map[string]int
}

// TransitCustody keeps RSA keys inside the Vault transit engine. Public keys are
// read from the key metadata and cached; unwrapping goes through the transit
// decrypt endpoint.
type TransitCustody struct {
	client *vault.Client
	keeper cryptoDomain.KMSKeeper
	cfg    TransitConfig
	cache  *expirable.LRU[string, *transitKeySet]

	mu     sync.Mutex
	pepper []byte
}

// NewTransitClient creates a Vault API client for address authenticated with token.
func NewTransitClient(address, token string) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = address
	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)
	return client, nil
}

// NewTransitCustody creates the backend on top of an authenticated client.
func NewTransitCustody(client *vault.Client, cfg TransitConfig) *TransitCustody {
	return &TransitCustody{
		client: client,
		keeper: hashivault.OpenKeeper(client, cfg.KeyName, nil),
		cfg:    cfg,
		cache:  expirable.NewLRU[string, *transitKeySet](1, nil, cfg.CacheTTL),
	}
}

// PublicKey returns the latest version of the named key.
func (t *TransitCustody) PublicKey(ctx context.Context) (*custodyDomain.PublicKey, error) {
	set, err := t.keySet(ctx, false)
	if err != nil {
		return nil, err
	}
	key, ok := set.byVer[set.latest]
	if !ok {
		return nil, custodyDomain.ErrNoKeys
	}
	return key, nil
}

// Decrypt unwraps ciphertext with the key version owning encodedPublicKey.
func (t *TransitCustody) Decrypt(ctx context.Context, ciphertext []byte, encodedPublicKey string) ([]byte, error) {
	version, err := t.versionOf(ctx, encodedPublicKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	plaintext, err := t.keeper.Decrypt(ctx, []byte(formatTransitCiphertext(version, ciphertext)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrSecretDecryptionFailed, err)
	}
	return plaintext, nil
}

// Encrypt wraps plaintext through the transit encrypt endpoint. Vault always
// encrypts with the latest version, so a request for an older key fails.
func (t *TransitCustody) Encrypt(ctx context.Context, plaintext []byte, encodedPublicKey string) ([]byte, error) {
	version, err := t.versionOf(ctx, encodedPublicKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	out, err := t.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", custodyDomain.ErrCustodyUnavailable, err)
	}
	gotVersion, raw, err := parseTransitCiphertext(string(out))
	if err != nil {
		return nil, err
	}
	if gotVersion != version {
		t.cache.Remove(t.cfg.KeyName)
		return nil, errors.Wrapf(custodyDomain.ErrKeyNotFound, "transit key %s:v%d is not the latest version", t.cfg.KeyName, version)
	}
	return raw, nil
}

// Pepper reads the pepper from the configured KV path. Both KV v1 and KV v2
// response layouts are accepted.
func (t *TransitCustody) Pepper(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pepper != nil {
		return t.pepper, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	secret, err := t.client.Logical().ReadWithContext(ctx, t.cfg.PepperPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", custodyDomain.ErrCustodyUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, custodyDomain.ErrPepperUnavailable
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	pepper, _ := data["pepper"].(string)
	if pepper == "" {
		return nil, custodyDomain.ErrPepperUnavailable
	}

	t.pepper = []byte(pepper)
	return t.pepper, nil
}

// Close releases the transit keeper.
func (t *TransitCustody) Close() error {
	return t.keeper.Close()
}

func (t *TransitCustody) versionOf(ctx context.Context, encodedPublicKey string) (int, error) {
	set, err := t.keySet(ctx, false)
	if err != nil {
		return 0, err
	}
	if version, ok := set.versions[encodedPublicKey]; ok {
		return version, nil
	}

	// The key may have been rotated since the cache was filled.
	set, err = t.keySet(ctx, true)
	if err != nil {
		return 0, err
	}
	if version, ok := set.versions[encodedPublicKey]; ok {
		return version, nil
	}
	return 0, custodyDomain.ErrKeyNotFound
}

func (t *TransitCustody) keySet(ctx context.Context, refresh bool) (*transitKeySet, error) {
	if !refresh {
		if set, ok := t.cache.Get(t.cfg.KeyName); ok {
			return set, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	secret, err := t.client.Logical().ReadWithContext(ctx, path.Join("transit/keys", t.cfg.KeyName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", custodyDomain.ErrCustodyUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, custodyDomain.ErrNoKeys
	}

	set, err := parseTransitKeySet(t.cfg.KeyName, secret.Data)
	if err != nil {
		return nil, err
	}
	t.cache.Add(t.cfg.KeyName, set)
	return set, nil
}

func parseTransitKeySet(name string, data map[string]any) (*transitKeySet, error) {
	latest, err := toInt(data["latest_version"])
	if err != nil {
		return nil, fmt.Errorf("invalid latest_version for transit key %s: %w", name, err)
	}

	keys, _ := data["keys"].(map[string]any)
	set := &transitKeySet{
		latest:   latest,
		byVer:    make(map[int]*custodyDomain.PublicKey, len(keys)),
		versions: make(map[string]int, len(keys)),
	}
	for rawVersion, rawKey := range keys {
		version, err := strconv.Atoi(rawVersion)
		if err != nil {
			continue
		}
		fields, ok := rawKey.(map[string]any)
		if !ok {
			continue
		}
		pemKey, _ := fields["public_key"].(string)
		if pemKey == "" {
			continue
		}
		pub, err := cryptoService.ParsePublicKeyPEM([]byte(pemKey))
		if err != nil {
			return nil, errors.Wrapf(err, "transit key %s:v%d", name, version)
		}
		encoded, err := cryptoService.EncodePublicKey(pub)
		if err != nil {
			return nil, err
		}
		set.byVer[version] = &custodyDomain.PublicKey{
			Key:       pub,
			Encoded:   encoded,
			Label:     fmt.Sprintf("%s:v%d", name, version),
			Algorithm: cryptoDomain.RSAOAEPSHA256,
		}
		set.versions[encoded] = version
	}
	if len(set.byVer) == 0 {
		return nil, custodyDomain.ErrNoKeys
	}
	return set, nil
}

func formatTransitCiphertext(version int, ciphertext []byte) string {
	return fmt.Sprintf("vault:v%d:%s", version, base64.StdEncoding.EncodeToString(ciphertext))
}

func parseTransitCiphertext(s string) (int, []byte, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "vault" || !strings.HasPrefix(parts[1], "v") {
		return 0, nil, errors.Wrap(errors.ErrInvalidInput, "malformed transit ciphertext")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[1], "v"))
	if err != nil {
		return 0, nil, errors.Wrap(errors.ErrInvalidInput, "malformed transit ciphertext version")
	}
	raw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return 0, nil, errors.Wrap(errors.ErrInvalidInput, "malformed transit ciphertext payload")
	}
	return version, raw, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

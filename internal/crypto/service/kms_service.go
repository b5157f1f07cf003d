package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"gocloud.dev/secrets"
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
)

// keeperSchemes are the gocloud.dev/secrets drivers linked into the binary.
// base64key is only meant for tests and local development.
var keeperSchemes = []string{"awskms", "azurekeyvault", "gcpkms", "hashivault", "base64key"}

// KMSService opens the keeper holding the HSM custody key.
type KMSService interface {
	// OpenKeeper opens the keeper addressed by keyURI, for example
	// awskms:///alias/archive or gcpkms://projects/p/locations/l/keyRings/r/cryptoKeys/k.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	scheme, err := keeperScheme(keyURI)
	if err != nil {
		return nil, err
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s keeper: %w", scheme, err)
	}
	return keeper, nil
}

// keeperScheme rejects key URIs no linked driver can open, before any network call.
func keeperScheme(keyURI string) (string, error) {
	if keyURI == "" {
		return "", fmt.Errorf("%w: key uri is required", cryptoDomain.ErrUnsupportedKeeper)
	}
	parsed, err := url.Parse(keyURI)
	if err != nil {
		return "", fmt.Errorf("%w: %v", cryptoDomain.ErrUnsupportedKeeper, err)
	}
	if !slices.Contains(keeperSchemes, parsed.Scheme) {
		return "", fmt.Errorf("%w: %q", cryptoDomain.ErrUnsupportedKeeper, parsed.Scheme)
	}
	return parsed.Scheme, nil
}

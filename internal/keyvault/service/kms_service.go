package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService opens gocloud.dev keepers. Supported URI schemes:
// base64key:// (local, testing), awskms://, gcpkms://, azurekeyvault:// and hashivault://.
type kmsService struct{}

// NewKMSService creates a new KMSService.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens the keeper identified by keyURI.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

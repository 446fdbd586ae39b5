package commands

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultService "github.com/echocipher/carrier/internal/keyvault/service"
)

// RunCreateProtectionKey generates the 32-byte key that protects vault records at rest
// and prints it in the form DB_ENCRYPTION_KEY expects.
//
// Without a KMS the key is printed as 64 hex characters. With kmsKeyURI set, the key
// is encrypted by the keeper and printed as base64 ciphertext together with the KMS
// settings needed to unwrap it.
func RunCreateProtectionKey(
	ctx context.Context,
	kms keyvaultService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf("--kms-provider and --kms-key-uri must be set together")
	}

	hexKey, err := keyvaultService.GenerateHexKey()
	if err != nil {
		return fmt.Errorf("failed to generate protection key: %w", err)
	}

	if kmsKeyURI == "" {
		logger.Warn("protection key printed in plaintext, prefer a KMS outside development")
		_, _ = fmt.Fprintf(writer, "DB_ENCRYPTION_KEY=\"%s\"\n", hexKey)
		return nil
	}

	keeper, err := kms.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Error("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return fmt.Errorf("failed to decode protection key: %w", err)
	}
	defer keyvaultDomain.Zero(key)

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt protection key with KMS: %w", err)
	}

	logger.Info("protection key encrypted with KMS", slog.String("kms_provider", kmsProvider))

	_, _ = fmt.Fprintf(writer, "DB_ENCRYPTION_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(ciphertext))
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	return nil
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultUseCase "github.com/echocipher/carrier/internal/keyvault/usecase"
)

type keyOutput struct {
	ID            string     `json:"id"`
	Scope         string     `json:"scope"`
	Version       uint       `json:"version"`
	Algorithm     string     `json:"algorithm"`
	Source        string     `json:"source"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func toKeyOutput(key *keyvaultDomain.MasterKey) keyOutput {
	return keyOutput{
		ID:            key.ID.String(),
		Scope:         key.Scope,
		Version:       key.Version,
		Algorithm:     string(key.Algorithm),
		Source:        string(key.Source),
		IsActive:      key.IsActive,
		CreatedAt:     key.CreatedAt,
		DeactivatedAt: key.DeactivatedAt,
	}
}

// RunGenerateKey creates the first active master key of scope. The key material
// stays in the vault; only its metadata is printed.
func RunGenerateKey(
	ctx context.Context,
	vault keyvaultUseCase.VaultUseCase,
	logger *slog.Logger,
	writer io.Writer,
	scope, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("generating master key", slog.String("scope", scope))

	key, err := vault.GenerateKey(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	return writeKey(writer, key, format, "Master key generated")
}

// RunRotateKey deactivates the active key of scope and creates the next version.
// Conversions pinned to the old version remain decodable.
func RunRotateKey(
	ctx context.Context,
	vault keyvaultUseCase.VaultUseCase,
	logger *slog.Logger,
	writer io.Writer,
	scope, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("rotating master key", slog.String("scope", scope))

	key, err := vault.Rotate(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to rotate master key: %w", err)
	}

	return writeKey(writer, key, format, "Master key rotated")
}

// RunListKeys prints every version of scope, newest first.
func RunListKeys(
	ctx context.Context,
	vault keyvaultUseCase.VaultUseCase,
	writer io.Writer,
	scope, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keys, err := vault.ListKeys(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to list master keys: %w", err)
	}

	if format == "json" {
		out := make([]keyOutput, 0, len(keys))
		for _, key := range keys {
			out = append(out, toKeyOutput(key))
		}
		return json.NewEncoder(writer).Encode(out)
	}

	t := newTable(writer, table.Row{"ID", "Version", "Algorithm", "Source", "Active", "Created At"})
	for _, key := range keys {
		t.AppendRow(table.Row{
			key.ID.String(),
			key.Version,
			key.Algorithm,
			key.Source,
			key.IsActive,
			key.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(keys)})
	t.Render()
	return nil
}

func writeKey(writer io.Writer, key *keyvaultDomain.MasterKey, format, title string) error {
	if format == "json" {
		return json.NewEncoder(writer).Encode(toKeyOutput(key))
	}

	_, _ = fmt.Fprintf(writer, "%s\n", title)
	_, _ = fmt.Fprintf(writer, "  ID:        %s\n", key.ID)
	_, _ = fmt.Fprintf(writer, "  Scope:     %s\n", key.Scope)
	_, _ = fmt.Fprintf(writer, "  Version:   %d\n", key.Version)
	_, _ = fmt.Fprintf(writer, "  Algorithm: %s\n", key.Algorithm)
	return nil
}

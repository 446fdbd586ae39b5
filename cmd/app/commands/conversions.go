package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/echocipher/carrier/internal/conversion/http/dto"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	ledgerUseCase "github.com/echocipher/carrier/internal/ledger/usecase"
)

// UploadSweeper removes spooled uploads older than a given age.
type UploadSweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// RunListConversions prints the conversions of userID, newest first.
func RunListConversions(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	writer io.Writer,
	userID, status string,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}

	filter := ledgerDomain.ListFilter{Status: ledgerDomain.Status(status), Limit: limit}
	if status != "" && !filter.Status.Valid() {
		return fmt.Errorf(
			"invalid status: %s (valid options: pending, processing, completed, failed)",
			status,
		)
	}

	conversions, err := ledger.ListByUser(ctx, userID, filter)
	if err != nil {
		return fmt.Errorf("failed to list conversions: %w", err)
	}

	if format == "json" {
		return json.NewEncoder(writer).Encode(dto.MapConversionsToListResponse(conversions))
	}

	t := newTable(writer, table.Row{"ID", "Direction", "Status", "File", "Size", "Key Version", "Started At"})
	for _, conv := range conversions {
		t.AppendRow(table.Row{
			conv.ID.String(),
			conv.Direction,
			conv.Status,
			conv.Input.FileName,
			conv.Input.FileSize,
			conv.KeyVersion,
			conv.StartTime.UTC().Format(time.RFC3339),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(conversions)})
	t.Render()
	return nil
}

// RunConversionStats prints conversion counts per status for userID, or for
// every user when userID is empty.
func RunConversionStats(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	writer io.Writer,
	userID, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	stats, err := ledger.Stats(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load conversion stats: %w", err)
	}

	if format == "json" {
		return json.NewEncoder(writer).Encode(stats)
	}

	t := newTable(writer, table.Row{"Status", "Count"})
	t.AppendRows([]table.Row{
		{ledgerDomain.StatusPending, stats.Pending},
		{ledgerDomain.StatusProcessing, stats.Processing},
		{ledgerDomain.StatusCompleted, stats.Completed},
		{ledgerDomain.StatusFailed, stats.Failed},
	})
	t.AppendFooter(table.Row{"Total", stats.Total})
	t.Render()
	return nil
}

// RunCleanUploads removes spooled uploads older than maxAge. They are left
// behind when the process stops during an encode.
func RunCleanUploads(uploads UploadSweeper, logger *slog.Logger, writer io.Writer, maxAge time.Duration) error {
	if maxAge <= 0 {
		return fmt.Errorf("max age must be positive, got: %s", maxAge)
	}

	removed, err := uploads.Sweep(maxAge)
	if err != nil {
		return fmt.Errorf("failed to clean uploads: %w", err)
	}

	logger.Info("uploads cleaned", slog.Int("removed", removed), slog.Duration("max_age", maxAge))
	_, _ = fmt.Fprintf(writer, "Removed %d upload(s) older than %s\n", removed, maxAge)
	return nil
}

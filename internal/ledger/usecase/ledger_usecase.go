package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/echocipher/carrier/internal/errors"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

type ledgerUseCase struct {
	repo     ConversionRepository
	recorder EventRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase. recorder may be nil.
func NewLedgerUseCase(repo ConversionRepository, recorder EventRecorder, logger *slog.Logger) LedgerUseCase {
	return &ledgerUseCase{
		repo:     repo,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *ledgerUseCase) Create(ctx context.Context, input CreateInput) (*ledgerDomain.Conversion, error) {
	if input.UserID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "user id is required")
	}
	if !input.Direction.Valid() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid conversion direction")
	}

	now := l.now()
	conversion := &ledgerDomain.Conversion{
		ID:                 uuid.Must(uuid.NewV7()),
		UserID:             input.UserID,
		Direction:          input.Direction,
		Status:             ledgerDomain.StatusPending,
		Input:              input.Input,
		KeyID:              input.KeyID,
		KeyVersion:         input.KeyVersion,
		KeyFingerprint:     input.KeyFingerprint,
		SourceConversionID: input.SourceConversionID,
		StartTime:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := l.repo.Create(ctx, conversion); err != nil {
		return nil, err
	}

	l.emit(ctx, conversion.ID, conversion.UserID, conversion.Direction, ledgerDomain.StatusPending, nil)
	return conversion, nil
}

func (l *ledgerUseCase) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return l.transition(ctx, id, ledgerDomain.StatusProcessing, TransitionUpdate{UpdatedAt: l.now()})
}

func (l *ledgerUseCase) MarkCompleted(
	ctx context.Context,
	id uuid.UUID,
	output *ledgerDomain.OutputDescriptor,
) error {
	if output == nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "output descriptor is required")
	}
	now := l.now()
	return l.transition(ctx, id, ledgerDomain.StatusCompleted, TransitionUpdate{
		Output:    output,
		EndTime:   &now,
		UpdatedAt: now,
	})
}

func (l *ledgerUseCase) MarkFailed(ctx context.Context, id uuid.UUID, convErr ledgerDomain.ConversionError) error {
	now := l.now()
	err := l.transition(ctx, id, ledgerDomain.StatusFailed, TransitionUpdate{
		Error:     &convErr,
		EndTime:   &now,
		UpdatedAt: now,
	})
	if err == nil || !apperrors.Is(err, ledgerDomain.ErrInvalidTransition) {
		return err
	}

	current, getErr := l.repo.Get(ctx, id)
	if getErr == nil && current.Status == ledgerDomain.StatusFailed {
		return nil
	}
	return err
}

func (l *ledgerUseCase) transition(
	ctx context.Context,
	id uuid.UUID,
	to ledgerDomain.Status,
	update TransitionUpdate,
) error {
	if err := l.repo.Transition(ctx, id, ledgerDomain.SourcesFor(to), to, update); err != nil {
		return err
	}

	current, err := l.repo.Get(ctx, id)
	if err != nil {
		l.logger.Warn("failed to reload conversion for event",
			slog.String("conversion_id", id.String()),
			slog.Any("error", err),
		)
		return nil
	}
	l.emit(ctx, id, current.UserID, current.Direction, to, update.Error)
	return nil
}

func (l *ledgerUseCase) emit(
	ctx context.Context,
	id uuid.UUID,
	userID string,
	direction ledgerDomain.Direction,
	status ledgerDomain.Status,
	convErr *ledgerDomain.ConversionError,
) {
	if l.recorder == nil {
		return
	}
	event := ledgerDomain.StatusEvent{
		ConversionID: id,
		UserID:       userID,
		Direction:    direction,
		Status:       status,
		Error:        convErr,
		OccurredAt:   l.now(),
	}
	if err := l.recorder.Record(ctx, ledgerDomain.EventTypeFor(status), event); err != nil {
		l.logger.Warn("failed to record conversion event",
			slog.String("conversion_id", id.String()),
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
	}
}

func (l *ledgerUseCase) Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error) {
	return l.repo.Get(ctx, id)
}

func (l *ledgerUseCase) GetForUser(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*ledgerDomain.Conversion, error) {
	conversion, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversion.UserID != userID {
		return nil, ledgerDomain.ErrConversionNotFound
	}
	return conversion, nil
}

func (l *ledgerUseCase) ListByUser(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ledgerDomain.ErrInvalidFilter
	}
	if filter.Direction != "" && !filter.Direction.Valid() {
		return nil, ledgerDomain.ErrInvalidFilter
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = ledgerDomain.DefaultListLimit
	case filter.Limit > ledgerDomain.MaxListLimit:
		filter.Limit = ledgerDomain.MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return l.repo.ListByUser(ctx, userID, filter)
}

func (l *ledgerUseCase) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	return l.repo.Stats(ctx, userID)
}

func (l *ledgerUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := l.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := l.repo.Delete(ctx, id); err != nil {
		return err
	}
	if l.recorder != nil {
		payload := ledgerDomain.StatusEvent{
			ConversionID: id,
			UserID:       current.UserID,
			Direction:    current.Direction,
			Status:       current.Status,
			OccurredAt:   l.now(),
		}
		if err := l.recorder.Record(ctx, ledgerDomain.EventConversionDeleted, payload); err != nil {
			l.logger.Warn("failed to record conversion event",
				slog.String("conversion_id", id.String()),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

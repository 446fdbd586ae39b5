package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	artifactUsecase "github.com/echocipher/carrier/internal/artifact/usecase"
	"github.com/echocipher/carrier/internal/bundle"
	conversionDomain "github.com/echocipher/carrier/internal/conversion/domain"
	"github.com/echocipher/carrier/internal/errors"
	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
	gatewayService "github.com/echocipher/carrier/internal/gateway/service"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultUsecase "github.com/echocipher/carrier/internal/keyvault/usecase"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	ledgerUsecase "github.com/echocipher/carrier/internal/ledger/usecase"
)

// Config tunes the orchestrator.
type Config struct {
	// MaxUploadBytes bounds encode inputs. Zero disables the check.
	MaxUploadBytes int64
	// DefaultCompress applies when a request does not choose.
	DefaultCompress bool
	// MaxEntryBytes caps each decompressed entry of a gateway bundle. Zero means
	// the bundle package default.
	MaxEntryBytes int64
	// FetchConcurrency bounds parallel chunk reads when a bundle is rebuilt. Zero means four.
	FetchConcurrency int
}

type conversionUseCase struct {
	cfg     Config
	vault   keyvaultUsecase.VaultUseCase
	ledger  ledgerUsecase.LedgerUseCase
	store   artifactUsecase.StoreUseCase
	gateway gatewayService.Gateway
	uploads UploadStore
	logger  *slog.Logger
}

// NewConversionUseCase creates the orchestrator.
func NewConversionUseCase(
	cfg Config,
	vault keyvaultUsecase.VaultUseCase,
	ledger ledgerUsecase.LedgerUseCase,
	store artifactUsecase.StoreUseCase,
	gateway gatewayService.Gateway,
	uploads UploadStore,
	logger *slog.Logger,
) ConversionUseCase {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	return &conversionUseCase{
		cfg:     cfg,
		vault:   vault,
		ledger:  ledger,
		store:   store,
		gateway: gateway,
		uploads: uploads,
		logger:  logger,
	}
}

func (c *conversionUseCase) Encode(
	ctx context.Context,
	input EncodeInput,
) (*ledgerDomain.Conversion, error) {
	defer c.uploads.Remove(input.Upload)

	if err := conversionDomain.ValidateUserID(input.UserID); err != nil {
		return nil, err
	}
	if input.Upload == nil {
		return nil, conversionDomain.ErrEmptyFile
	}
	fileName, err := conversionDomain.ValidateAudioInput(input.Upload.FileName, input.Upload.Size, c.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	key, err := c.encodeKey(ctx, input.UserID, input.MasterKeyHex)
	if err != nil {
		return nil, err
	}

	record, err := c.ledger.Create(ctx, ledgerUsecase.CreateInput{
		UserID:         input.UserID,
		Direction:      ledgerDomain.DirectionEncode,
		Input:          ledgerDomain.NewInputDescriptor(fileName, input.Upload.Size),
		KeyID:          key.Reference.ID,
		KeyVersion:     key.Reference.Version,
		KeyFingerprint: key.Reference.Fingerprint,
	})
	if err != nil {
		if input.MasterKeyHex != "" {
			c.discardKey(ctx, input.UserID, key.Reference)
		}
		return nil, err
	}
	logger := c.logger.With(
		slog.String("conversion_id", record.ID.String()),
		slog.String("user_id", input.UserID),
	)

	audio, err := c.uploads.Read(ctx, input.Upload)
	if err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}
	if err := c.ledger.MarkProcessing(ctx, record.ID); err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	compress := c.cfg.DefaultCompress
	if input.Options.Compress != nil {
		compress = *input.Options.Compress
	}
	result, err := c.gateway.Encode(ctx, gatewayDomain.EncodeRequest{
		Audio:        audio,
		FileName:     fileName,
		UserID:       input.UserID,
		MasterKeyHex: key.Hex,
		Options: gatewayDomain.EncodeOptions{
			Compress:      compress,
			MaxChunkBytes: input.Options.MaxChunkBytes,
		},
	})
	if err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	output, err := c.persist(ctx, logger, record, result)
	if err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	if err := c.ledger.MarkCompleted(ctx, record.ID, output); err != nil {
		c.rollback(ctx, logger, output.BundleID, output.ChunkIDs())
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	logger.Info("encode completed",
		slog.Int("chunk_count", output.ChunkCount),
		slog.Int64("bundle_size", output.BundleSize),
	)
	return c.ledger.Get(ctx, record.ID)
}

// encodeKey validates and pins a caller-supplied key, or resolves one through the vault.
func (c *conversionUseCase) encodeKey(
	ctx context.Context,
	userID, masterKeyHex string,
) (*keyvaultDomain.ResolvedKey, error) {
	if masterKeyHex == "" {
		return c.vault.GetOrCreateMasterKey(ctx, userID)
	}
	if err := keyvaultDomain.ValidateHexKey(masterKeyHex); err != nil {
		return nil, err
	}
	return c.vault.ImportKey(ctx, userID, masterKeyHex)
}

// discardKey removes a supplied key that no conversion record pins.
func (c *conversionUseCase) discardKey(ctx context.Context, userID string, ref keyvaultDomain.KeyReference) {
	if err := c.vault.DiscardImported(context.WithoutCancel(ctx), ref); err != nil {
		c.logger.Error("failed to discard supplied key",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// persist stores the bundle and its chunks. On failure every object written so
// far is deleted again.
func (c *conversionUseCase) persist(
	ctx context.Context,
	logger *slog.Logger,
	record *ledgerDomain.Conversion,
	result *gatewayDomain.EncodeResult,
) (*ledgerDomain.OutputDescriptor, error) {
	entries, err := bundle.UnpackLimited(result.Bundle, c.cfg.MaxEntryBytes)
	if err != nil {
		return nil, gatewayDomain.NewFailure("unreadable bundle: %v", err)
	}
	chunks := bundle.Chunks(entries)
	if len(chunks) == 0 {
		return nil, gatewayDomain.NewFailure("%v", conversionDomain.ErrEmptyBundle)
	}
	for _, chunk := range chunks {
		if len(chunk.Data) == 0 {
			return nil, gatewayDomain.NewFailure("bundle entry %s is empty", chunk.Name)
		}
	}

	base := artifactDomain.Metadata{
		ConversionID: record.ID.String(),
		UserID:       record.UserID,
	}
	bundleFileName := conversionDomain.SanitizeFileName(result.FileName)
	if bundleFileName == "" {
		bundleFileName = strings.TrimSuffix(record.Input.FileName, filepath.Ext(record.Input.FileName)) + "_images.zip"
	}

	bundleID, err := c.store.PutBundle(ctx, result.Bundle, bundleFileName, base)
	if err != nil {
		return nil, err
	}

	refs := make([]ledgerDomain.ChunkRef, 0, len(chunks))
	for i, chunk := range chunks {
		meta := base
		meta.Index = i
		id, err := c.store.PutChunk(ctx, chunk.Data, chunk.Name, meta)
		if err != nil {
			ids := make([]uuid.UUID, len(refs))
			for j, ref := range refs {
				ids[j] = ref.ID
			}
			c.rollback(ctx, logger, &bundleID, ids)
			return nil, err
		}
		refs = append(refs, ledgerDomain.ChunkRef{
			ID:       id,
			FileName: chunk.Name,
			Size:     int64(len(chunk.Data)),
			Index:    i,
		})
	}

	return &ledgerDomain.OutputDescriptor{
		BundleID:       &bundleID,
		BundleFileName: bundleFileName,
		BundleSize:     int64(len(result.Bundle)),
		Chunks:         refs,
		ChunkCount:     len(refs),
	}, nil
}

// rollback deletes uncommitted artifact objects. It runs even when ctx is done.
func (c *conversionUseCase) rollback(
	ctx context.Context,
	logger *slog.Logger,
	bundleID *uuid.UUID,
	chunkIDs []uuid.UUID,
) {
	if err := c.store.DeleteArtifact(context.WithoutCancel(ctx), bundleID, chunkIDs); err != nil {
		logger.Error("failed to roll back artifact", slog.Any("error", err))
	}
}

// fail marks id failed with the kind of cause and returns cause. The ledger
// update runs even when ctx is done.
func (c *conversionUseCase) fail(ctx context.Context, logger *slog.Logger, id uuid.UUID, cause error) error {
	convErr := conversionDomain.ConversionErrorOf(cause)
	if err := c.ledger.MarkFailed(context.WithoutCancel(ctx), id, convErr); err != nil {
		logger.Error("failed to mark conversion failed",
			slog.Any("error", err),
			slog.String("cause", cause.Error()),
		)
	}
	logger.Warn("conversion failed",
		slog.String("kind", convErr.Kind),
		slog.Bool("retryable", convErr.Retryable),
		slog.Any("error", cause),
	)
	return cause
}

func (c *conversionUseCase) Decode(ctx context.Context, input DecodeInput) (*DecodeOutput, error) {
	if err := conversionDomain.ValidateUserID(input.UserID); err != nil {
		return nil, err
	}

	source, err := c.ledger.GetForUser(ctx, input.UserID, input.ConversionID)
	if err != nil {
		return nil, err
	}
	if source.Direction != ledgerDomain.DirectionEncode {
		return nil, conversionDomain.ErrNotEncodeConversion
	}
	if source.Status != ledgerDomain.StatusCompleted {
		return nil, conversionDomain.ErrSourceNotCompleted
	}
	if !source.Output.HasArtifact() {
		return nil, conversionDomain.ErrNoArtifact
	}

	keyHex, err := c.decodeKey(ctx, source, input.MasterKeyHex)
	if err != nil {
		return nil, err
	}

	outputName := conversionDomain.SanitizeFileName(input.OutputFileName)
	record, err := c.ledger.Create(ctx, ledgerUsecase.CreateInput{
		UserID:             input.UserID,
		Direction:          ledgerDomain.DirectionDecode,
		Input:              ledgerDomain.NewInputDescriptor(source.Output.BundleFileName, source.Output.BundleSize),
		KeyID:              source.KeyID,
		KeyVersion:         source.KeyVersion,
		KeyFingerprint:     source.KeyFingerprint,
		SourceConversionID: &source.ID,
	})
	if err != nil {
		return nil, err
	}
	logger := c.logger.With(
		slog.String("conversion_id", record.ID.String()),
		slog.String("source_conversion_id", source.ID.String()),
		slog.String("user_id", input.UserID),
	)

	if err := c.ledger.MarkProcessing(ctx, record.ID); err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	data, err := c.fetchBundle(ctx, logger, source.Output)
	if err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	result, err := c.gateway.Decode(ctx, gatewayDomain.DecodeRequest{
		Bundle:         data,
		UserID:         input.UserID,
		MasterKeyHex:   keyHex,
		OutputFileName: outputName,
	})
	if err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	fileName := conversionDomain.SanitizeFileName(result.FileName)
	if fileName == "" {
		fileName = source.Input.FileName
	}
	if err := c.ledger.MarkCompleted(ctx, record.ID, &ledgerDomain.OutputDescriptor{
		FileName: fileName,
		Size:     int64(len(result.Audio)),
	}); err != nil {
		return nil, c.fail(ctx, logger, record.ID, err)
	}

	updated, err := c.ledger.Get(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Info("decode completed", slog.Int("size", len(result.Audio)))
	return &DecodeOutput{
		Conversion:  updated,
		Audio:       result.Audio,
		FileName:    fileName,
		ContentType: contentType,
	}, nil
}

// decodeKey returns the key pinned to source. A caller-supplied key must have
// the pinned fingerprint.
func (c *conversionUseCase) decodeKey(
	ctx context.Context,
	source *ledgerDomain.Conversion,
	supplied string,
) (string, error) {
	if supplied != "" {
		if err := keyvaultDomain.ValidateHexKey(supplied); err != nil {
			return "", err
		}
		if source.KeyFingerprint != "" && keyvaultDomain.Fingerprint(supplied) != source.KeyFingerprint {
			return "", keyvaultDomain.ErrKeyMismatch
		}
		return supplied, nil
	}
	return c.vault.Reveal(ctx, keyvaultDomain.KeyReference{
		ID:          source.KeyID,
		Version:     source.KeyVersion,
		Fingerprint: source.KeyFingerprint,
	})
}

// fetchBundle reads the stored bundle, rebuilding it from the chunks when the
// bundle object is gone.
func (c *conversionUseCase) fetchBundle(
	ctx context.Context,
	logger *slog.Logger,
	output *ledgerDomain.OutputDescriptor,
) ([]byte, error) {
	if output.BundleID != nil {
		obj, err := c.store.Get(ctx, *output.BundleID)
		if err == nil {
			return obj.Data, nil
		}
		if !errors.Is(err, artifactDomain.ErrObjectNotFound) || len(output.Chunks) == 0 {
			return nil, err
		}
		logger.Warn("bundle missing, rebuilding from chunks",
			slog.String("bundle_id", output.BundleID.String()),
		)
	}

	entries := make([]bundle.Entry, len(output.Chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.FetchConcurrency)
	for i, ref := range output.Chunks {
		g.Go(func() error {
			obj, err := c.store.Get(gctx, ref.ID)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", ref.Index, err)
			}
			entries[i] = bundle.Entry{Name: ref.FileName, Data: obj.Data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := bundle.Pack(entries)
	if err != nil {
		return nil, artifactDomain.NewStorageError(err)
	}
	return data, nil
}

func (c *conversionUseCase) Create(ctx context.Context, input CreateInput) (*ledgerDomain.Conversion, error) {
	if err := conversionDomain.ValidateUserID(input.UserID); err != nil {
		return nil, err
	}
	fileName := conversionDomain.SanitizeFileName(input.FileName)
	if fileName == "" {
		return nil, conversionDomain.ErrInvalidFileName
	}
	if input.FileSize < 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "file size must not be negative")
	}
	return c.ledger.Create(ctx, ledgerUsecase.CreateInput{
		UserID:    input.UserID,
		Direction: input.Direction,
		Input:     ledgerDomain.NewInputDescriptor(fileName, input.FileSize),
	})
}

func (c *conversionUseCase) GetStatus(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*ledgerDomain.Conversion, error) {
	if err := conversionDomain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return c.ledger.GetForUser(ctx, userID, id)
}

func (c *conversionUseCase) List(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	if err := conversionDomain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return c.ledger.ListByUser(ctx, userID, filter)
}

func (c *conversionUseCase) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := conversionDomain.ValidateUserID(userID); err != nil {
		return err
	}
	record, err := c.ledger.GetForUser(ctx, userID, id)
	if err != nil {
		return err
	}
	if record.Status == ledgerDomain.StatusProcessing {
		return conversionDomain.ErrConversionInProgress
	}

	if record.Output.HasArtifact() {
		if err := c.store.DeleteArtifact(ctx, record.Output.BundleID, record.Output.ChunkIDs()); err != nil {
			c.logger.Error("conversion artifact not fully deleted",
				slog.String("conversion_id", id.String()),
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			return err
		}
	}
	return c.ledger.Delete(ctx, id)
}

func (c *conversionUseCase) DownloadBundle(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*BundleDownload, error) {
	if err := conversionDomain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	record, err := c.ledger.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if record.Direction != ledgerDomain.DirectionEncode {
		return nil, conversionDomain.ErrNotEncodeConversion
	}
	if record.Status != ledgerDomain.StatusCompleted {
		return nil, conversionDomain.ErrSourceNotCompleted
	}
	if !record.Output.HasArtifact() {
		return nil, conversionDomain.ErrNoArtifact
	}

	data, err := c.fetchBundle(ctx, c.logger.With(slog.String("conversion_id", id.String())), record.Output)
	if err != nil {
		return nil, err
	}
	return &BundleDownload{Data: data, FileName: record.Output.BundleFileName}, nil
}

func (c *conversionUseCase) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	if err := conversionDomain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return c.ledger.Stats(ctx, userID)
}

func (c *conversionUseCase) GatewayHealth(ctx context.Context) error {
	return c.gateway.Health(ctx)
}

// Package http provides HTTP handlers for conversion operations. Successful
// responses are wrapped in the orchestrator's Result envelope.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	conversionDomain "github.com/echocipher/carrier/internal/conversion/domain"
	"github.com/echocipher/carrier/internal/conversion/http/dto"
	conversionUseCase "github.com/echocipher/carrier/internal/conversion/usecase"
	"github.com/echocipher/carrier/internal/httputil"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	customValidation "github.com/echocipher/carrier/internal/validation"
)

// UploadSpooler stores an uploaded file until the orchestrator consumes it.
type UploadSpooler interface {
	Save(fileName string, r io.Reader) (*conversionDomain.Upload, error)
}

// Response headers set by DecodeHandler.
const (
	ConversionIDHeader = "X-Conversion-ID"
	TotalChunksHeader  = "X-Total-Chunks"
)

// ConversionHandler handles HTTP requests for conversions.
type ConversionHandler struct {
	conversionUseCase conversionUseCase.ConversionUseCase
	uploads           UploadSpooler
	logger            *slog.Logger
}

// NewConversionHandler creates a new conversion handler with required dependencies.
func NewConversionHandler(
	conversionUseCase conversionUseCase.ConversionUseCase,
	uploads UploadSpooler,
	logger *slog.Logger,
) *ConversionHandler {
	return &ConversionHandler{
		conversionUseCase: conversionUseCase,
		uploads:           uploads,
		logger:            logger,
	}
}

// EncodeHandler runs an encode for a multipart audio upload.
// POST /v1/conversions/encode
// Returns 201 Created with the completed conversion.
func (h *ConversionHandler) EncodeHandler(c *gin.Context) {
	var req dto.EncodeRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("file is required"), h.logger)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	upload, err := h.uploads.Save(fileHeader.Filename, file)
	if err != nil {
		h.handleError(c, err)
		return
	}

	conv, err := h.conversionUseCase.Encode(c.Request.Context(), conversionUseCase.EncodeInput{
		UserID:       httputil.UserID(c),
		Upload:       upload,
		MasterKeyHex: req.MasterKey,
		Options: conversionUseCase.EncodeOptions{
			Compress:      req.Compress,
			MaxChunkBytes: req.MaxChunkBytes,
		},
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conversionDomain.NewResult(dto.MapConversionToResponse(conv), nil))
}

// DecodeHandler recovers the audio of a completed encode conversion.
// POST /v1/conversions/:id/decode
// Returns 200 OK with the audio as an attachment.
func (h *ConversionHandler) DecodeHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// The body is optional.
	var req dto.DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	out, err := h.conversionUseCase.Decode(c.Request.Context(), conversionUseCase.DecodeInput{
		UserID:         httputil.UserID(c),
		ConversionID:   id,
		MasterKeyHex:   req.MasterKey,
		OutputFileName: req.OutputFileName,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(out.FileName))
	c.Header(ConversionIDHeader, out.Conversion.ID.String())
	if out.Conversion.Output != nil {
		c.Header(TotalChunksHeader, strconv.Itoa(out.Conversion.Output.ChunkCount))
	}
	c.Data(http.StatusOK, out.ContentType, out.Audio)
}

// CreateHandler registers a pending conversion.
// POST /v1/conversions
// Returns 201 Created with the pending record.
func (h *ConversionHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	conv, err := h.conversionUseCase.Create(c.Request.Context(), conversionUseCase.CreateInput{
		UserID:    httputil.UserID(c),
		Direction: ledgerDomain.Direction(req.Direction),
		FileName:  req.FileName,
		FileSize:  req.FileSize,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conversionDomain.NewResult(dto.MapConversionToResponse(conv), nil))
}

// GetHandler returns a conversion owned by the caller.
// GET /v1/conversions/:id
func (h *ConversionHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	conv, err := h.conversionUseCase.GetStatus(c.Request.Context(), httputil.UserID(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversionDomain.NewResult(dto.MapConversionToResponse(conv), nil))
}

// ListHandler lists the caller's conversions, newest first.
// GET /v1/conversions?status=&direction=&offset=&limit=
func (h *ConversionHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var query dto.ListConversionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := query.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	conversions, err := h.conversionUseCase.List(c.Request.Context(), httputil.UserID(c), ledgerDomain.ListFilter{
		Status:    ledgerDomain.Status(query.Status),
		Direction: ledgerDomain.Direction(query.Direction),
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversionDomain.NewResult(dto.MapConversionsToListResponse(conversions), nil))
}

// StatsHandler returns the caller's conversion counts.
// GET /v1/conversions/stats
func (h *ConversionHandler) StatsHandler(c *gin.Context) {
	stats, err := h.conversionUseCase.Stats(c.Request.Context(), httputil.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversionDomain.NewResult(dto.MapStatsToResponse(stats), nil))
}

// BundleHandler streams the stored bundle of an encode conversion.
// GET /v1/conversions/:id/bundle
func (h *ConversionHandler) BundleHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	bundle, err := h.conversionUseCase.DownloadBundle(c.Request.Context(), httputil.UserID(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(bundle.FileName))
	c.Data(http.StatusOK, "application/zip", bundle.Data)
}

// DeleteHandler removes a conversion together with its stored artifact.
// DELETE /v1/conversions/:id
// Returns 204 No Content.
func (h *ConversionHandler) DeleteHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.conversionUseCase.Delete(c.Request.Context(), httputil.UserID(c), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GatewayHealthHandler reports whether the encoder/decoder is reachable.
// GET /v1/gateway/health
func (h *ConversionHandler) GatewayHealthHandler(c *gin.Context) {
	if err := h.conversionUseCase.GatewayHealth(c.Request.Context()); err != nil {
		h.logger.Warn("gateway health check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *ConversionHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid conversion id format: must be a valid UUID"),
			h.logger,
		)
		return uuid.Nil, false
	}
	return id, true
}

// handleError renders err as a failed Result carrying its kind and reason.
// Gateway failures surface as 502.
func (h *ConversionHandler) handleError(c *gin.Context, err error) {
	statusCode, _ := httputil.StatusFor(err)
	result := conversionDomain.NewResult[any](nil, err)
	if result.ErrorKind == conversionDomain.KindGatewayFailure {
		statusCode = http.StatusBadGateway
	}

	h.logger.Error("request failed",
		slog.Int("status_code", statusCode),
		slog.String("error_kind", string(result.ErrorKind)),
		slog.Any("error", err),
	)

	c.JSON(statusCode, result)
}

func attachment(fileName string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}

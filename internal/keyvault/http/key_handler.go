// Package http provides HTTP handlers for the caller's vault keys.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echocipher/carrier/internal/httputil"
	"github.com/echocipher/carrier/internal/keyvault/http/dto"
	keyvaultUseCase "github.com/echocipher/carrier/internal/keyvault/usecase"
)

// KeyHandler manages the key versions of the caller's scope.
type KeyHandler struct {
	vaultUseCase keyvaultUseCase.VaultUseCase
	logger       *slog.Logger
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler(vaultUseCase keyvaultUseCase.VaultUseCase, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		vaultUseCase: vaultUseCase,
		logger:       logger,
	}
}

// GenerateHandler creates a new active key for the caller.
// POST /v1/keys/generate
func (h *KeyHandler) GenerateHandler(c *gin.Context) {
	key, err := h.vaultUseCase.GenerateKey(c.Request.Context(), httputil.UserID(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key))
}

// RotateHandler deactivates the caller's active key and creates the next version.
// POST /v1/keys/rotate
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	key, err := h.vaultUseCase.Rotate(c.Request.Context(), httputil.UserID(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key))
}

// ListHandler lists every key version of the caller, including superseded ones.
// GET /v1/keys
func (h *KeyHandler) ListHandler(c *gin.Context) {
	keys, err := h.vaultUseCase.ListKeys(c.Request.Context(), httputil.UserID(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeysToListResponse(keys))
}

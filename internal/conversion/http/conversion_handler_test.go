package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	conversionDomain "github.com/echocipher/carrier/internal/conversion/domain"
	"github.com/echocipher/carrier/internal/conversion/http/dto"
	conversionService "github.com/echocipher/carrier/internal/conversion/service"
	conversionUseCase "github.com/echocipher/carrier/internal/conversion/usecase"
	"github.com/echocipher/carrier/internal/conversion/usecase/mocks"
	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
	"github.com/echocipher/carrier/internal/httputil"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

const (
	testUser = "alice"
	testKey  = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
)

type testEnv struct {
	router  *gin.Engine
	useCase *mocks.MockConversionUseCase
	fs      afero.Fs
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fs := afero.NewMemMapFs()
	uploads, err := conversionService.NewUploadStore(fs, "/uploads", 1<<20, logger)
	require.NoError(t, err)

	useCase := mocks.NewMockConversionUseCase(t)
	handler := NewConversionHandler(useCase, uploads, logger)

	router := gin.New()
	router.GET("/v1/gateway/health", handler.GatewayHealthHandler)
	v1 := router.Group("/v1", httputil.RequireUserID(logger))
	v1.POST("/conversions/encode", handler.EncodeHandler)
	v1.POST("/conversions", handler.CreateHandler)
	v1.GET("/conversions", handler.ListHandler)
	v1.GET("/conversions/stats", handler.StatsHandler)
	v1.GET("/conversions/:id", handler.GetHandler)
	v1.POST("/conversions/:id/decode", handler.DecodeHandler)
	v1.GET("/conversions/:id/bundle", handler.BundleHandler)
	v1.DELETE("/conversions/:id", handler.DeleteHandler)

	return &testEnv{router: router, useCase: useCase, fs: fs}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(httputil.UserIDHeader, testUser)
	return req
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := newRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := newRequest(http.MethodPost, "/v1/conversions/encode", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func completedEncode() *ledgerDomain.Conversion {
	now := time.Now().UTC()
	bundleID := uuid.Must(uuid.NewV7())
	return &ledgerDomain.Conversion{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    testUser,
		Direction: ledgerDomain.DirectionEncode,
		Status:    ledgerDomain.StatusCompleted,
		Input:     ledgerDomain.NewInputDescriptor("song.wav", 5),
		Output: &ledgerDomain.OutputDescriptor{
			BundleID:       &bundleID,
			BundleFileName: "song_images.zip",
			ChunkCount:     2,
		},
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeResult[T any](t *testing.T, w *httptest.ResponseRecorder) conversionDomain.Result[T] {
	t.Helper()
	var result conversionDomain.Result[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) conversionDomain.Result[any] {
	t.Helper()
	result := decodeResult[any](t, w)
	require.False(t, result.Success)
	return result
}

func TestConversionHandler_Encode(t *testing.T) {
	t.Run("Success_SpoolsUploadAndRunsEncode", func(t *testing.T) {
		env := setupTestRouter(t)
		conv := completedEncode()

		var spooled *conversionDomain.Upload
		env.useCase.On("Encode", mock.Anything, mock.MatchedBy(func(in conversionUseCase.EncodeInput) bool {
			spooled = in.Upload
			return in.UserID == testUser &&
				in.MasterKeyHex == testKey &&
				in.Upload != nil && in.Upload.FileName == "song.wav" && in.Upload.Size == 5 &&
				in.Options.Compress != nil && !*in.Options.Compress &&
				in.Options.MaxChunkBytes == 2048
		})).Return(conv, nil).Once()

		w := env.do(multipartRequest(t, map[string]string{
			"master_key":      testKey,
			"compress":        "false",
			"max_chunk_bytes": "2048",
		}, "song.wav", []byte("audio")))

		assert.Equal(t, http.StatusCreated, w.Code)
		result := decodeResult[dto.ConversionResponse](t, w)
		assert.True(t, result.Success)
		assert.Equal(t, conv.ID.String(), result.Payload.ID)
		assert.Equal(t, "completed", result.Payload.Status)

		require.NotNil(t, spooled)
		data, err := afero.ReadFile(env.fs, spooled.Path)
		require.NoError(t, err)
		assert.Equal(t, "audio", string(data))
	})

	t.Run("Success_DefaultOptions", func(t *testing.T) {
		env := setupTestRouter(t)

		env.useCase.On("Encode", mock.Anything, mock.MatchedBy(func(in conversionUseCase.EncodeInput) bool {
			return in.MasterKeyHex == "" && in.Options.Compress == nil && in.Options.MaxChunkBytes == 0
		})).Return(completedEncode(), nil).Once()

		w := env.do(multipartRequest(t, nil, "song.wav", []byte("audio")))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Error_MissingFile", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(multipartRequest(t, map[string]string{"compress": "true"}, "", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env.useCase.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidMasterKey", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(multipartRequest(t, map[string]string{"master_key": "abc"}, "song.wav", []byte("audio")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NotMultipart", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(jsonRequest(t, http.MethodPost, "/v1/conversions/encode", map[string]string{}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_UploadTooLarge", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(multipartRequest(t, nil, "song.wav", make([]byte, (1<<20)+1)))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, conversionDomain.KindInvalidInput, decodeError(t, w).ErrorKind)
	})

	t.Run("Error_GatewayFailure", func(t *testing.T) {
		env := setupTestRouter(t)

		env.useCase.On("Encode", mock.Anything, mock.Anything).
			Return(nil, gatewayDomain.NewFailure("encode: %s", "unsupported sample rate")).
			Once()

		w := env.do(multipartRequest(t, nil, "song.wav", []byte("audio")))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, conversionDomain.KindGatewayFailure, body.ErrorKind)
		assert.Contains(t, body.Message, "unsupported sample rate")
	})

	t.Run("Error_GatewayTimeout", func(t *testing.T) {
		env := setupTestRouter(t)

		env.useCase.On("Encode", mock.Anything, mock.Anything).
			Return(nil, gatewayDomain.NewTimeout(nil)).
			Once()

		w := env.do(multipartRequest(t, nil, "song.wav", []byte("audio")))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, conversionDomain.KindGatewayTimeout, decodeError(t, w).ErrorKind)
	})

	t.Run("Error_MissingUserID", func(t *testing.T) {
		env := setupTestRouter(t)

		req := multipartRequest(t, nil, "song.wav", []byte("audio"))
		req.Header.Del(httputil.UserIDHeader)
		w := env.do(req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestConversionHandler_Decode(t *testing.T) {
	t.Run("Success_StreamsAudio", func(t *testing.T) {
		env := setupTestRouter(t)
		source := completedEncode()
		decoded := &ledgerDomain.Conversion{
			ID:        uuid.Must(uuid.NewV7()),
			UserID:    testUser,
			Direction: ledgerDomain.DirectionDecode,
			Status:    ledgerDomain.StatusCompleted,
			Output:    &ledgerDomain.OutputDescriptor{FileName: "out.wav", Size: 4, ChunkCount: 2},
		}

		env.useCase.On("Decode", mock.Anything, conversionUseCase.DecodeInput{
			UserID:         testUser,
			ConversionID:   source.ID,
			OutputFileName: "out.wav",
		}).Return(&conversionUseCase.DecodeOutput{
			Conversion:  decoded,
			Audio:       []byte("RIFF"),
			FileName:    "out.wav",
			ContentType: "audio/wav",
		}, nil).Once()

		w := env.do(jsonRequest(t, http.MethodPost, "/v1/conversions/"+source.ID.String()+"/decode",
			dto.DecodeRequest{OutputFileName: "out.wav"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "RIFF", w.Body.String())
		assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=out.wav`)
		assert.Equal(t, decoded.ID.String(), w.Header().Get("X-Conversion-ID"))
		assert.Equal(t, "2", w.Header().Get("X-Total-Chunks"))
	})

	t.Run("Success_EmptyBody", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("Decode", mock.Anything, conversionUseCase.DecodeInput{
			UserID:       testUser,
			ConversionID: id,
		}).Return(&conversionUseCase.DecodeOutput{
			Conversion:  &ledgerDomain.Conversion{ID: uuid.Must(uuid.NewV7())},
			Audio:       []byte("x"),
			FileName:    "recovered_audio.wav",
			ContentType: "application/octet-stream",
		}, nil).Once()

		w := env.do(newRequest(http.MethodPost, "/v1/conversions/"+id.String()+"/decode", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "recovered_audio.wav")
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(newRequest(http.MethodPost, "/v1/conversions/not-a-uuid/decode", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		req := newRequest(http.MethodPost, "/v1/conversions/"+id.String()+"/decode", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := env.do(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_KeyMismatch", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("Decode", mock.Anything, mock.Anything).
			Return(nil, keyvaultDomain.ErrKeyMismatch).
			Once()

		w := env.do(jsonRequest(t, http.MethodPost, "/v1/conversions/"+id.String()+"/decode",
			dto.DecodeRequest{MasterKey: testKey}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, conversionDomain.KindInvalidInput, decodeError(t, w).ErrorKind)
	})

	t.Run("Error_SourceNotCompleted", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("Decode", mock.Anything, mock.Anything).
			Return(nil, conversionDomain.ErrSourceNotCompleted).
			Once()

		w := env.do(newRequest(http.MethodPost, "/v1/conversions/"+id.String()+"/decode", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, conversionDomain.KindInvalidTransition, decodeError(t, w).ErrorKind)
	})
}

func TestConversionHandler_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := setupTestRouter(t)
		conv := &ledgerDomain.Conversion{
			ID:        uuid.Must(uuid.NewV7()),
			UserID:    testUser,
			Direction: ledgerDomain.DirectionEncode,
			Status:    ledgerDomain.StatusPending,
			Input:     ledgerDomain.NewInputDescriptor("song.mp3", 10),
		}

		env.useCase.On("Create", mock.Anything, conversionUseCase.CreateInput{
			UserID:    testUser,
			Direction: ledgerDomain.DirectionEncode,
			FileName:  "song.mp3",
			FileSize:  10,
		}).Return(conv, nil).Once()

		w := env.do(jsonRequest(t, http.MethodPost, "/v1/conversions", dto.CreateConversionRequest{
			Direction: "encode",
			FileName:  "song.mp3",
			FileSize:  10,
		}))

		assert.Equal(t, http.StatusCreated, w.Code)
		result := decodeResult[dto.ConversionResponse](t, w)
		assert.Equal(t, "pending", result.Payload.Status)
		assert.Equal(t, "mp3", result.Payload.Format)
	})

	t.Run("Error_InvalidDirection", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(jsonRequest(t, http.MethodPost, "/v1/conversions", dto.CreateConversionRequest{
			Direction: "both",
			FileName:  "song.mp3",
			FileSize:  10,
		}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestConversionHandler_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := setupTestRouter(t)
		conv := completedEncode()

		env.useCase.On("GetStatus", mock.Anything, testUser, conv.ID).Return(conv, nil).Once()

		w := env.do(newRequest(http.MethodGet, "/v1/conversions/"+conv.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		result := decodeResult[dto.ConversionResponse](t, w)
		require.NotNil(t, result.Payload.Output)
		assert.Equal(t, 2, result.Payload.Output.ChunkCount)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("GetStatus", mock.Anything, testUser, id).
			Return(nil, ledgerDomain.ErrConversionNotFound).
			Once()

		w := env.do(newRequest(http.MethodGet, "/v1/conversions/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, conversionDomain.KindNotFound, decodeError(t, w).ErrorKind)
	})
}

func TestConversionHandler_List(t *testing.T) {
	t.Run("Success_WithFilters", func(t *testing.T) {
		env := setupTestRouter(t)

		env.useCase.On("List", mock.Anything, testUser, ledgerDomain.ListFilter{
			Status:    ledgerDomain.StatusCompleted,
			Direction: ledgerDomain.DirectionEncode,
			Offset:    5,
			Limit:     10,
		}).Return([]*ledgerDomain.Conversion{completedEncode(), completedEncode()}, nil).Once()

		w := env.do(newRequest(http.MethodGet,
			"/v1/conversions?status=completed&direction=encode&offset=5&limit=10", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		result := decodeResult[dto.ListConversionsResponse](t, w)
		assert.Len(t, result.Payload.Data, 2)
	})

	t.Run("Success_Defaults", func(t *testing.T) {
		env := setupTestRouter(t)

		env.useCase.On("List", mock.Anything, testUser, ledgerDomain.ListFilter{Limit: 50}).
			Return([]*ledgerDomain.Conversion{}, nil).
			Once()

		w := env.do(newRequest(http.MethodGet, "/v1/conversions", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"payload":{"data":[]}}`, w.Body.String())
	})

	t.Run("Error_LimitTooLarge", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(newRequest(http.MethodGet, "/v1/conversions?limit=101", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_UnknownStatus", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(newRequest(http.MethodGet, "/v1/conversions?status=done", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestConversionHandler_Stats(t *testing.T) {
	env := setupTestRouter(t)

	env.useCase.On("Stats", mock.Anything, testUser).Return(&ledgerDomain.Stats{
		Total:           3,
		Completed:       2,
		Failed:          1,
		TotalInputBytes: 300,
	}, nil).Once()

	w := env.do(newRequest(http.MethodGet, "/v1/conversions/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	result := decodeResult[dto.StatsResponse](t, w)
	assert.Equal(t, int64(3), result.Payload.Total)
	assert.Equal(t, int64(300), result.Payload.TotalInputBytes)
}

func TestConversionHandler_Bundle(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("DownloadBundle", mock.Anything, testUser, id).
			Return(&conversionUseCase.BundleDownload{Data: []byte("PK"), FileName: "song_images.zip"}, nil).
			Once()

		w := env.do(newRequest(http.MethodGet, "/v1/conversions/"+id.String()+"/bundle", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "song_images.zip")
		assert.Equal(t, "PK", w.Body.String())
	})

	t.Run("Error_NoArtifact", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("DownloadBundle", mock.Anything, testUser, id).
			Return(nil, conversionDomain.ErrNoArtifact).
			Once()

		w := env.do(newRequest(http.MethodGet, "/v1/conversions/"+id.String()+"/bundle", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestConversionHandler_Delete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("Delete", mock.Anything, testUser, id).Return(nil).Once()

		w := env.do(newRequest(http.MethodDelete, "/v1/conversions/"+id.String(), nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Error_InProgress", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		env.useCase.On("Delete", mock.Anything, testUser, id).
			Return(conversionDomain.ErrConversionInProgress).
			Once()

		w := env.do(newRequest(http.MethodDelete, "/v1/conversions/"+id.String(), nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Error_PartialDelete", func(t *testing.T) {
		env := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())
		remaining := uuid.Must(uuid.NewV7())

		env.useCase.On("Delete", mock.Anything, testUser, id).
			Return(&artifactDomain.PartialDeleteError{Remaining: []uuid.UUID{remaining}}).
			Once()

		w := env.do(newRequest(http.MethodDelete, "/v1/conversions/"+id.String(), nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, conversionDomain.KindPartialDeleteFailure, body.ErrorKind)
		assert.Contains(t, body.Message, remaining.String())
	})
}

func TestConversionHandler_GatewayHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		env := setupTestRouter(t)
		env.useCase.On("GatewayHealth", mock.Anything).Return(nil).Once()

		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/gateway/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	})

	t.Run("Unhealthy", func(t *testing.T) {
		env := setupTestRouter(t)
		env.useCase.On("GatewayHealth", mock.Anything).Return(gatewayDomain.NewTimeout(nil)).Once()

		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/gateway/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestConversionHandler_ErrorResult(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   conversionDomain.ErrorKind
		wantMsg    string
		hidden     string
	}{
		{
			name:       "StorageError",
			err:        artifactDomain.NewStorageError(errors.New("write /var/lib/carrier/blob: disk full")),
			wantStatus: http.StatusInternalServerError,
			wantKind:   conversionDomain.KindStorageError,
			wantMsg:    "storage error",
			hidden:     "disk full",
		},
		{
			name:       "DecryptionFailed",
			err:        fmt.Errorf("%w: %w", keyvaultDomain.ErrDecryptionFailed, errors.New("cipher: message authentication failed")),
			wantStatus: http.StatusInternalServerError,
			wantKind:   conversionDomain.KindDecryptionFailed,
			wantMsg:    keyvaultDomain.ErrDecryptionFailed.Error(),
			hidden:     "cipher",
		},
		{
			name:       "EncryptionConfigError",
			err:        keyvaultDomain.ErrEncryptionConfig,
			wantStatus: http.StatusInternalServerError,
			wantKind:   conversionDomain.KindEncryptionConfigError,
			wantMsg:    keyvaultDomain.ErrEncryptionConfig.Error(),
		},
		{
			name:       "NoKeyAvailable",
			err:        keyvaultDomain.ErrNoKeyAvailable,
			wantStatus: http.StatusNotFound,
			wantKind:   conversionDomain.KindNoKeyAvailable,
			wantMsg:    keyvaultDomain.ErrNoKeyAvailable.Error(),
		},
		{
			name:       "GatewayTimeout",
			err:        gatewayDomain.NewTimeout(errors.New("dial tcp 10.0.0.7:8080: i/o timeout")),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   conversionDomain.KindGatewayTimeout,
			wantMsg:    gatewayDomain.ErrGatewayTimeout.Error(),
			hidden:     "10.0.0.7",
		},
		{
			name:       "GatewayFailure",
			err:        gatewayDomain.NewFailure("Invalid master key"),
			wantStatus: http.StatusBadGateway,
			wantKind:   conversionDomain.KindGatewayFailure,
			wantMsg:    "gateway failure: Invalid master key",
		},
		{
			name:       "InvalidTransition",
			err:        ledgerDomain.ErrInvalidTransition,
			wantStatus: http.StatusConflict,
			wantKind:   conversionDomain.KindInvalidTransition,
			wantMsg:    ledgerDomain.ErrInvalidTransition.Error(),
		},
		{
			name:       "NotFound",
			err:        ledgerDomain.ErrConversionNotFound,
			wantStatus: http.StatusNotFound,
			wantKind:   conversionDomain.KindNotFound,
			wantMsg:    ledgerDomain.ErrConversionNotFound.Error(),
		},
		{
			name:       "Internal",
			err:        errors.New(`pq: relation "conversions" does not exist`),
			wantStatus: http.StatusInternalServerError,
			wantKind:   conversionDomain.KindInternal,
			wantMsg:    "internal error",
			hidden:     "relation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(t)
			id := uuid.Must(uuid.NewV7())

			env.useCase.On("GetStatus", mock.Anything, testUser, id).Return(nil, tt.err).Once()

			w := env.do(newRequest(http.MethodGet, "/v1/conversions/"+id.String(), nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.wantKind, body.ErrorKind)
			assert.Equal(t, tt.wantMsg, body.Message)
			if tt.hidden != "" {
				assert.NotContains(t, w.Body.String(), tt.hidden)
			}
		})
	}
}

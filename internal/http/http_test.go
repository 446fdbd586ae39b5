package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/echocipher/carrier/internal/config"
	conversionHTTP "github.com/echocipher/carrier/internal/conversion/http"
	conversionMocks "github.com/echocipher/carrier/internal/conversion/usecase/mocks"
	"github.com/echocipher/carrier/internal/httputil"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultHTTP "github.com/echocipher/carrier/internal/keyvault/http"
	vaultMocks "github.com/echocipher/carrier/internal/keyvault/usecase/mocks"
	"github.com/echocipher/carrier/internal/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(nil, "localhost", 8080, discardLogger())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthHandler(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])
}

func TestReadinessHandler(t *testing.T) {
	t.Run("nil database", func(t *testing.T) {
		server := createTestServer(t)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, map[string]any{"database": "error"}, body["components"])
	})

	t.Run("ping succeeds", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		dbMock.ExpectPing()

		server := NewServer(db, "localhost", 8080, discardLogger())

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, map[string]any{"database": "ok"}, body["components"])
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("ping fails", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))

		server := NewServer(db, "localhost", 8080, discardLogger())

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", decodeBody(t, w)["status"])
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(httputil.RequireUserID(logger))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test?status=completed", nil)
	req.Header.Set(httputil.UserIDHeader, "alice")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/test?status=completed", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.Equal(t, "alice", entry["user_id"])
	assert.Equal(t, w.Header().Get("X-Request-Id"), entry["request_id"])
}

func TestCustomLoggerMiddleware_ServerErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.NotContains(t, entry, "user_id")
}

type routerFixture struct {
	router      http.Handler
	conversions *conversionMocks.MockConversionUseCase
	vault       *vaultMocks.MockVaultUseCase
}

func newRouterFixture(t *testing.T, cfg *config.Config) *routerFixture {
	t.Helper()

	logger := discardLogger()
	conversions := conversionMocks.NewMockConversionUseCase(t)
	vault := &vaultMocks.MockVaultUseCase{}
	t.Cleanup(func() { vault.AssertExpectations(t) })

	server := NewServer(nil, "localhost", 8080, logger)
	server.SetupRouter(
		cfg,
		conversionHTTP.NewConversionHandler(conversions, nil, logger),
		keyvaultHTTP.NewKeyHandler(vault, logger),
		nil,
		"carrier",
	)

	return &routerFixture{router: server.GetHandler(), conversions: conversions, vault: vault}
}

func TestSetupRouter_PublicRoutes(t *testing.T) {
	f := newRouterFixture(t, &config.Config{})

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("gateway health needs no caller", func(t *testing.T) {
		f.conversions.On("GatewayHealth", mock.Anything).Return(nil).Once()

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/gateway/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no metrics endpoint on api port", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSetupRouter_CallerRoutesRequireUser(t *testing.T) {
	f := newRouterFixture(t, &config.Config{})

	for _, path := range []string{"/v1/conversions", "/v1/conversions/stats", "/v1/keys"} {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, path)
	}
}

func TestSetupRouter_KeyRoutes(t *testing.T) {
	f := newRouterFixture(t, &config.Config{})

	key := &keyvaultDomain.MasterKey{
		ID:        uuid.Must(uuid.NewV7()),
		Scope:     "alice",
		Version:   1,
		Algorithm: keyvaultDomain.AESGCM,
		Source:    keyvaultDomain.SourceGenerated,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	f.vault.On("ListKeys", mock.Anything, "alice").Return([]*keyvaultDomain.MasterKey{key}, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
	req.Header.Set(httputil.UserIDHeader, "alice")
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "encrypted")
}

func TestSetupRouter_RateLimitEnabled(t *testing.T) {
	f := newRouterFixture(t, &config.Config{
		RateLimitEnabled:        true,
		RateLimitRequestsPerSec: 0.5,
		RateLimitBurst:          1,
	})
	f.vault.On("ListKeys", mock.Anything, "alice").Return([]*keyvaultDomain.MasterKey{}, nil).Once()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
		req.Header.Set(httputil.UserIDHeader, "alice")
		f.router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServer_SetTimeouts(t *testing.T) {
	server := createTestServer(t)

	server.SetTimeouts(5*time.Minute, 0)

	assert.Equal(t, 5*time.Minute, server.server.ReadTimeout)
	assert.Equal(t, 15*time.Second, server.server.WriteTimeout)
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	server.SetupRouter(&config.Config{}, conversionHTTP.NewConversionHandler(nil, nil, discardLogger()),
		keyvaultHTTP.NewKeyHandler(nil, discardLogger()), nil, "carrier")

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("carrier_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsServer_WithoutProvider(t *testing.T) {
	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), nil)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

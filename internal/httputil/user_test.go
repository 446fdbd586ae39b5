package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newUserRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireUserID(nil))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return router
}

func TestRequireUserID(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		expectedCode int
		expectedBody string
	}{
		{name: "valid", header: "alice", expectedCode: http.StatusOK, expectedBody: "alice"},
		{name: "trimmed", header: "  bob  ", expectedCode: http.StatusOK, expectedBody: "bob"},
		{name: "missing", header: "", expectedCode: http.StatusUnprocessableEntity},
		{name: "path separator", header: "../etc", expectedCode: http.StatusUnprocessableEntity},
		{name: "too long", header: strings.Repeat("u", 101), expectedCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newUserRouter()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

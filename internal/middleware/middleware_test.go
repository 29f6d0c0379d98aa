package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"practice-server/internal/models"
	"practice-server/internal/utils"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func echoBody(c *gin.Context) {
	body, _ := c.GetRawData()
	c.String(http.StatusOK, string(body))
}

func TestWebhookSignature(t *testing.T) {
	router := gin.New()
	router.POST("/hook", WebhookSignature("hook-secret", zap.NewNop()), echoBody)
	body := `{"id":"evt-1"}`

	cases := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid", Sign("hook-secret", []byte(body)), http.StatusOK},
		{"uppercase hex", strings.ToUpper(Sign("hook-secret", []byte(body))), http.StatusOK},
		{"wrong secret", Sign("other", []byte(body)), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
			if tc.signature != "" {
				req.Header.Set(SignatureHeader, tc.signature)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, body, w.Body.String(), "body must reach the handler intact")
			}
		})
	}
}

func TestWebhookSignatureDisabledWithoutSecret(t *testing.T) {
	router := gin.New()
	router.POST("/hook", WebhookSignature("", zap.NewNop()), echoBody)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/admin", AuthMiddleware(testSecret), RoleAuthMiddleware(models.RoleAdmin), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		c.String(http.StatusOK, id)
	})

	adminToken, err := utils.GenerateAccessToken("admin-1", models.RoleAdmin, testSecret, time.Minute)
	require.NoError(t, err)
	staffToken, err := utils.GenerateAccessToken("staff-1", models.RoleStaff, testSecret, time.Minute)
	require.NoError(t, err)
	foreignToken, err := utils.GenerateAccessToken("admin-1", models.RoleAdmin, "other-secret", time.Minute)
	require.NoError(t, err)
	expiredToken, err := utils.GenerateAccessToken("admin-1", models.RoleAdmin, testSecret, -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"admin", "Bearer " + adminToken, http.StatusOK},
		{"staff forbidden", "Bearer " + staffToken, http.StatusForbidden},
		{"wrong secret", "Bearer " + foreignToken, http.StatusUnauthorized},
		{"expired", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"no header", "", http.StatusUnauthorized},
		{"bad scheme", "Token " + adminToken, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "admin-1", w.Body.String())
			}
		})
	}
}

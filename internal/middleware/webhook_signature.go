package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practice-server/internal/utils"
)

const (
	SignatureHeader = "X-Webhook-Signature"
	// maxWebhookBody caps the body read for signature checks
	maxWebhookBody = 1 << 20
)

// WebhookSignature checks the hex HMAC-SHA256 of the raw body against the
// signature header. An empty secret disables the check.
func WebhookSignature(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		signature := strings.TrimSpace(c.GetHeader(SignatureHeader))
		if signature == "" {
			logger.Warn("missing webhook signature", zap.String("remote_addr", c.ClientIP()))
			utils.Unauthorized(c, "missing webhook signature")
			c.Abort()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			logger.Error("failed to read webhook body", zap.Error(err))
			utils.Error(c, http.StatusBadRequest, "unreadable body")
			c.Abort()
			return
		}
		// restore the body for the handler
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(Sign(secret, body))) {
			logger.Warn("invalid webhook signature", zap.String("remote_addr", c.ClientIP()))
			utils.Unauthorized(c, "invalid webhook signature")
			c.Abort()
			return
		}

		c.Next()
	}
}

// Sign returns the hex HMAC-SHA256 of body
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Anonymizer interface {
	Anonymize(ctx context.Context, customerID, eventID string) error
}

// WebhookHandler terminates Shopify webhooks. The HMAC check runs over the
// raw body before anything is parsed; the anonymization path is destructive,
// so a failed or missing signature is a hard 401.
type WebhookHandler struct {
	Anonymizer Anonymizer
	Secret     string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/webhooks/shopify", h.receive)
}

type redactPayload struct {
	ShopDomain string `json:"shop_domain"`
	Customer   struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"customer"`
	OrdersToRedact []int64 `json:"orders_to_redact"`
}

// @Summary Receive a Shopify webhook
// @Tags webhooks
// @Param X-Shopify-Topic header string true "webhook topic"
// @Param X-Shopify-Hmac-Sha256 header string true "body signature"
// @Param X-Shopify-Webhook-Id header string true "delivery id"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /webhooks/shopify [post]
func (h *WebhookHandler) receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}

	topic := c.GetHeader("X-Shopify-Topic")
	if !h.verifySignature(body, c.GetHeader("X-Shopify-Hmac-Sha256")) {
		if h.Logger != nil {
			h.Logger.Warn("webhook signature rejected",
				zap.String("topic", topic),
				zap.String("remote", c.ClientIP()),
			)
		}
		Error(c, http.StatusUnauthorized, "signature mismatch", nil)
		return
	}

	eventID := c.GetHeader("X-Shopify-Webhook-Id")

	switch topic {
	case "customers/redact":
		h.handleRedact(c, body, eventID)
	case "customers/data_request", "shop/redact":
		// No store-side effect here: data requests are answered out of band
		// and shop-wide redaction is an operator action.
		if h.Logger != nil {
			h.Logger.Info("webhook acknowledged", zap.String("topic", topic), zap.String("event_id", eventID))
		}
		Ok(c, gin.H{"status": "acknowledged"}, nil)
	default:
		if h.Logger != nil {
			h.Logger.Info("webhook ignored", zap.String("topic", topic), zap.String("event_id", eventID))
		}
		Ok(c, gin.H{"status": "ignored"}, nil)
	}
}

func (h *WebhookHandler) handleRedact(c *gin.Context, body []byte, eventID string) {
	if eventID == "" {
		Error(c, http.StatusBadRequest, "missing webhook id", nil)
		return
	}
	var payload redactPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Customer.ID == 0 {
		if h.Logger != nil {
			h.Logger.Warn("malformed redact payload", zap.String("event_id", eventID), zap.Error(err))
		}
		Error(c, http.StatusBadRequest, "malformed payload", nil)
		return
	}
	if h.Anonymizer == nil {
		Error(c, http.StatusInternalServerError, "anonymizer unavailable", nil)
		return
	}

	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	customerID := strconv.FormatInt(payload.Customer.ID, 10)
	if err := h.Anonymizer.Anonymize(ctx, customerID, eventID); err != nil {
		if h.Logger != nil {
			h.Logger.Error("anonymization failed",
				zap.String("customer_id", customerID),
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
		// 500 makes Shopify redeliver; the processed-event check makes the
		// retry safe.
		Error(c, http.StatusInternalServerError, "anonymization failed", nil)
		return
	}
	Ok(c, gin.H{"status": "accepted"}, nil)
}

func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	if h.Secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

package handlers

import (
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	nh "github.com/fatflowers/entitlement/internal/app/service/notification_handler"
	"github.com/fatflowers/entitlement/internal/platform/apple/apple_signature"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/gin-gonic/gin"
)

const internalServerError = "Internal server error"

// WebhookError is the body of every non-200 webhook response.
type WebhookError struct {
	Error string `json:"error"`
}

// @Summary      Apple Webhook
// @Description  Handles App Store subscription notifications. The X-Apple-Signature header carries the base64 HMAC-SHA256 of the raw body.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        X-Apple-Signature header string true "base64 HMAC-SHA256 of the body"
// @Param        payload body nh.Notification true "Notification payload"
// @Success      200  {object}  nh.Result
// @Failure      400  {object}  handlers.WebhookError
// @Failure      401  {object}  handlers.WebhookError
// @Failure      500  {object}  handlers.WebhookError
// @Router       /api/v2/payment/webhook/apple [post]
// ApiAppleWebhook handles App Store server notifications
func ApiAppleWebhook(h *nh.NotificationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, h.Logger)
		log.Infow("webhook_apple_received")

		body, err := c.GetRawData()
		if err != nil {
			log.Errorw("webhook_apple_read_error", "error", err.Error())
			c.JSON(http.StatusBadRequest, WebhookError{Error: apperrors.ErrInvalidNotificationData.Message})
			return
		}

		res, err := h.HandleNotification(c.Request.Context(), body, c.GetHeader(apple_signature.HeaderName))
		if err != nil {
			status := apperrors.HTTPStatus(err)
			msg := apperrors.MessageOf(err)
			if (status != http.StatusBadRequest && status != http.StatusUnauthorized) || msg == "" {
				status, msg = http.StatusInternalServerError, internalServerError
			}
			log.Warnw("webhook_apple_rejected", "status", status, "error", err.Error())
			c.JSON(status, WebhookError{Error: msg})
			return
		}
		log.Infow("webhook_apple_handled", "processed", res.Processed, "event_kind", res.EventKind)
		c.JSON(http.StatusOK, res)
	}
}

func RegisterPaymentV2Routes(r gin.IRouter, notifHandler *nh.NotificationHandler) {
	r.POST("/webhook/apple", ApiAppleWebhook(notifHandler))
}

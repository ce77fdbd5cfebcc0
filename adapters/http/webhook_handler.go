package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/application/service"
	entitlementUC "github.com/khoahotran/filmila/internal/application/usecase/entitlement"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

const maxWebhookBodyBytes = int64(65536)

type WebhookHandler struct {
	verifier service.WebhookVerifier
	settle   *entitlementUC.SettlePurchaseUseCase
	logger   logger.Logger
}

func NewWebhookHandler(verifier service.WebhookVerifier, settle *entitlementUC.SettlePurchaseUseCase, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, settle: settle, logger: log}
}

// Stripe answers 200 for ignored, unknown and repeated events.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(apperror.NewInvalidInput("cannot read webhook body", err))
		return
	}

	notification, err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("Rejected processor webhook", zap.Error(err))
		c.Error(apperror.NewInvalidInput("webhook signature verification failed", err))
		return
	}
	if notification == nil {
		c.Status(http.StatusOK)
		return
	}

	if err := h.settle.ApplyNotification(c.Request.Context(), notification); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

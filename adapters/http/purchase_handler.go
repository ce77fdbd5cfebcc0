package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	entitlementUC "github.com/khoahotran/filmila/internal/application/usecase/entitlement"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

const statusProcessing = "processing"

type PurchaseHandler struct {
	requestPurchaseUseCase *entitlementUC.RequestPurchaseUseCase
	checkAccessUseCase     *entitlementUC.CheckAccessUseCase
	streamContentUseCase   *entitlementUC.StreamContentUseCase
	listPurchasesUseCase   *entitlementUC.ListPurchasesUseCase
	getPurchaseUseCase     *entitlementUC.GetPurchaseUseCase
	logger                 logger.Logger
}

func NewPurchaseHandler(
	requestUC *entitlementUC.RequestPurchaseUseCase,
	accessUC *entitlementUC.CheckAccessUseCase,
	streamUC *entitlementUC.StreamContentUseCase,
	listUC *entitlementUC.ListPurchasesUseCase,
	getUC *entitlementUC.GetPurchaseUseCase,
	log logger.Logger,
) *PurchaseHandler {
	return &PurchaseHandler{
		requestPurchaseUseCase: requestUC,
		checkAccessUseCase:     accessUC,
		streamContentUseCase:   streamUC,
		listPurchasesUseCase:   listUC,
		getPurchaseUseCase:     getUC,
		logger:                 log,
	}
}

// RequestPurchase answers 200 once the purchase settled and 202 while the
// processor result is still unknown.
func (h *PurchaseHandler) RequestPurchase(c *gin.Context) {
	viewerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	filmID, ok := filmIDParam(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("payment_instrument_ref is required", err))
		return
	}

	p, err := h.requestPurchaseUseCase.Execute(c.Request.Context(), entitlementUC.RequestPurchaseInput{
		ViewerID:      viewerID,
		FilmID:        filmID,
		InstrumentRef: req.PaymentInstrumentRef,
	})
	if err != nil {
		c.Error(err)
		return
	}

	if p.Status == purchase.StatusPending {
		h.logger.Info("Purchase still processing",
			zap.String("purchase_id", p.ID.String()),
			zap.String("viewer_id", viewerID.String()),
		)
		c.Header("Location", "/api/purchases/"+p.ID.String())
		c.JSON(http.StatusAccepted, gin.H{"purchase_id": p.ID, "status": statusProcessing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase_id": p.ID, "status": p.Status})
}

func (h *PurchaseHandler) CheckAccess(c *gin.Context) {
	viewerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	filmID, ok := filmIDParam(c)
	if !ok {
		return
	}

	decision, err := h.checkAccessUseCase.Execute(c.Request.Context(), viewerID, filmID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// StreamContent returns the locator as JSON, or redirects to it with ?redirect=1.
func (h *PurchaseHandler) StreamContent(c *gin.Context) {
	viewerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	filmID, ok := filmIDParam(c)
	if !ok {
		return
	}

	locator, err := h.streamContentUseCase.Execute(c.Request.Context(), viewerID, filmID)
	if err != nil {
		c.Error(err)
		return
	}

	if redirect, _ := strconv.ParseBool(c.Query("redirect")); redirect {
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusFound, locator.URL)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, locator)
}

func (h *PurchaseHandler) ListMyPurchases(c *gin.Context) {
	viewerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	output, err := h.listPurchasesUseCase.Execute(c.Request.Context(), entitlementUC.ListPurchasesInput{
		ViewerID: viewerID,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	dtos := make([]PurchaseDTO, len(output.Purchases))
	for i, p := range output.Purchases {
		dtos[i] = ToPurchaseDTO(p)
	}
	c.JSON(http.StatusOK, gin.H{"purchases": dtos, "page": output.Page, "limit": output.Limit})
}

func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	viewerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid purchase ID", err))
		return
	}

	p, err := h.getPurchaseUseCase.Execute(c.Request.Context(), viewerID, purchaseID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToPurchaseDTO(p))
}

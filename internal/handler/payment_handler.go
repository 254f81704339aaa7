package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/service"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/response"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = int64(65536)
)

// PaymentHandler exposes checkout creation and the provider webhook.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// CreateCheckoutSession godoc
// @Summary Create checkout session
// @Tags Payments
// @Produce json
// @Param studentId query string true "Student"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /api/stripe/create-checkout-session [post]
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	res, err := h.service.CreateCheckoutSession(c.Request.Context(), c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Webhook godoc
// @Summary Payment provider webhook
// @Description Verifies the Stripe-Signature header and confirms completed checkouts.
// @Tags Payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /api/stripe/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable webhook body"))
		return
	}
	res, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

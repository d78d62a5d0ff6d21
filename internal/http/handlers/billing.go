package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/services"
)

// maxWebhookBody matches the payload cap Stripe documents for events.
const maxWebhookBody = 64 << 10

type BillingHandler struct {
	billingService services.BillingService
}

func NewBillingHandler(billingService services.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

func (bh *BillingHandler) Plans(c *gin.Context) {
	response.RespondOK(c, gin.H{"plans": bh.billingService.Plans()})
}

func (bh *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		response.RespondErr(c, apierr.Wrap(apierr.KindValidation, err))
		return
	}
	if len(payload) > maxWebhookBody {
		response.RespondErr(c, apierr.Newf(apierr.KindValidation, "payload too large"))
		return
	}
	out, err := bh.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

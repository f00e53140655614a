package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/payment"
	"github.com/keepat/api/internal/service"
)

// WebhookHandler receives payment provider events. Events are re-fetched
// from the provider by id before processing, so a forged body cannot inject
// state.
type WebhookHandler struct {
	payments payment.Provider
	billing  *service.BillingService
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(payments payment.Provider, billing *service.BillingService) *WebhookHandler {
	return &WebhookHandler{payments: payments, billing: billing}
}

// webhookEnvelope is the minimal body shape needed to locate the event.
type webhookEnvelope struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}

// PostEvent handles a provider event. Only customer.subscription.deleted is
// acted on; everything else is acknowledged and ignored.
func (h *WebhookHandler) PostEvent(c *gin.Context) {
	var body webhookEnvelope
	if err := c.ShouldBindJSON(&body); err != nil || body.Object != "event" || body.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid event."})
		return
	}

	event, err := h.payments.RetrieveEvent(c.Request.Context(), body.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
		return
	}

	if event.Type != "customer.subscription.deleted" {
		log.Infof("webhook ignoring event %s type %s", event.ID, event.Type)
		c.JSON(http.StatusOK, gin.H{"message": "Event " + event.Type + " has been ignored."})
		return
	}

	subscription, processed, err := h.billing.ReconcileSubscriptionEvent(c.Request.Context(), event)
	if err != nil {
		// A deleted application is fine: the customer is gone, nothing to do.
		if apperr.IsName(err, "ApplicationNotFound") {
			c.JSON(http.StatusOK, gin.H{"message": apperr.MessageFor(err)})
			return
		}
		respondError(c, err)
		return
	}
	if !processed {
		c.JSON(http.StatusOK, gin.H{"message": "Subscription already processed."})
		return
	}
	c.JSON(http.StatusOK, subscription)
}

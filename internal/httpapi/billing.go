package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepat/api/internal/service"
)

// BillingHandler serves the plan catalog and the application billing
// endpoints.
type BillingHandler struct {
	billing      *service.BillingService
	applications *service.ApplicationService
}

// NewBillingHandler constructs a BillingHandler.
func NewBillingHandler(billing *service.BillingService, applications *service.ApplicationService) *BillingHandler {
	return &BillingHandler{billing: billing, applications: applications}
}

// GetPlans returns the plan catalog.
func (h *BillingHandler) GetPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.billing.Plans())
}

// GetProfile returns the application's billing profile.
func (h *BillingHandler) GetProfile(c *gin.Context) {
	application, err := h.applications.Get(c.Request.Context(), c.Param("applicationId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":        application.BillingEmail,
		"card":         application.Card,
		"subscription": application.Subscription,
	})
}

// PutCreditCard replaces the application's payment card with the card behind
// the token route parameter.
func (h *BillingHandler) PutCreditCard(c *gin.Context) {
	card, err := h.billing.UpdateCreditCard(c.Request.Context(), c.Param("applicationId"), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"last4":     card.Last4,
		"brand":     card.Brand,
		"exp_month": card.ExpMonth,
		"exp_year":  card.ExpYear,
	})
}

// PutPlan changes the application's plan.
func (h *BillingHandler) PutPlan(c *gin.Context) {
	subscription, err := h.billing.ChangePlan(c.Request.Context(), c.Param("applicationId"), c.Param("planId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"current_period_start": subscription.CurrentPeriodStart,
		"current_period_end":   subscription.CurrentPeriodEnd,
		"trial_start":          subscription.TrialStart,
		"trial_end":            subscription.TrialEnd,
		"plan": gin.H{
			"id":             subscription.Plan.ID,
			"interval":       subscription.Plan.Interval,
			"upcomingPlanId": subscription.Plan.UpcomingPlanID,
		},
	})
}

// GetUpcomingCost quotes the prorated cost of a plan switch.
func (h *BillingHandler) GetUpcomingCost(c *gin.Context) {
	cost, err := h.billing.UpcomingCost(c.Request.Context(), c.Param("applicationId"), c.Param("planId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost})
}

// PostCancelUpcomingPlan aborts a pending downgrade.
func (h *BillingHandler) PostCancelUpcomingPlan(c *gin.Context) {
	subscription, err := h.billing.CancelUpcomingPlan(c.Request.Context(), c.Param("applicationId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan": gin.H{
			"upcomingPlanId": subscription.Plan.UpcomingPlanID,
		},
	})
}

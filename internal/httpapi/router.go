package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepat/api/internal/identity"
	"github.com/keepat/api/internal/payment"
	"github.com/keepat/api/internal/service"
)

// Build metadata, set at link time.
var (
	Version = "dev"
	Commit  = "unknown"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Verifier     *identity.Verifier
	Payments     payment.Provider
	Users        *service.UserService
	Applications *service.ApplicationService
	Billing      *service.BillingService
	Redirects    *service.RedirectService
}

// NewRouter builds the gin engine with all routes attached.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version, "commit": Commit})
	})

	userHandler := NewUserHandler(deps.Users)
	billingHandler := NewBillingHandler(deps.Billing, deps.Applications)
	redirectHandler := NewRedirectHandler(deps.Redirects)
	webhookHandler := NewWebhookHandler(deps.Payments, deps.Billing)

	v1 := engine.Group("/v1", AuthMiddleware(deps.Verifier))
	{
		v1.GET("/user/profile", userHandler.GetProfile)
		v1.DELETE("/user/profile", userHandler.DeleteProfile)
		v1.GET("/plans", billingHandler.GetPlans)

		app := v1.Group("/:applicationId", ApplicationAccessMiddleware(deps.Users))
		{
			app.GET("/profile", billingHandler.GetProfile)
			app.PUT("/creditCard/:token", billingHandler.PutCreditCard)
			app.PUT("/plan/:planId", billingHandler.PutPlan)
			app.GET("/plan/:planId/upcomingCost", billingHandler.GetUpcomingCost)
			app.POST("/cancelUpcomingPlan", billingHandler.PostCancelUpcomingPlan)

			app.GET("/redirects", redirectHandler.GetList)
			app.POST("/redirects", redirectHandler.Post)
			app.GET("/redirects/:redirectId", redirectHandler.Get)
			app.PUT("/redirects/:redirectId", redirectHandler.Put)
			app.DELETE("/redirects/:redirectId", redirectHandler.Delete)
			app.POST("/redirects/:redirectId/fromTo", redirectHandler.PostConversion)
			app.GET("/redirects/:redirectId/jobs/:jobId", redirectHandler.GetJob)
		}
	}

	engine.POST("/stripe/events", webhookHandler.PostEvent)

	return engine
}

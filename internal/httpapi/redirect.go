package httpapi

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/queue"
	"github.com/keepat/api/internal/service"
)

var hostnamePattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// RedirectHandler serves the redirect CRUD endpoints.
type RedirectHandler struct {
	redirects *service.RedirectService
}

// NewRedirectHandler constructs a RedirectHandler.
func NewRedirectHandler(redirects *service.RedirectService) *RedirectHandler {
	return &RedirectHandler{redirects: redirects}
}

// redirectRequest is the create/update request body.
type redirectRequest struct {
	HostSources    []string `json:"hostSources"`
	TargetHost     string   `json:"targetHost"`
	TargetProtocol string   `json:"targetProtocol"`
}

func (r redirectRequest) validate() string {
	if len(r.HostSources) == 0 {
		return "Invalid hostSources"
	}
	for _, host := range r.HostSources {
		if !hostnamePattern.MatchString(host) {
			return "Invalid hostSources"
		}
	}
	if !hostnamePattern.MatchString(r.TargetHost) {
		return "Invalid targetHost"
	}
	if r.TargetProtocol != models.ProtocolHTTP && r.TargetProtocol != models.ProtocolHTTPS {
		return "Invalid targetProtocol"
	}
	return ""
}

// GetList returns all redirects of the application.
func (h *RedirectHandler) GetList(c *gin.Context) {
	redirects, err := h.redirects.GetByApplicationID(c.Request.Context(), c.Param("applicationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redirects)
}

// Post creates a redirect.
func (h *RedirectHandler) Post(c *gin.Context) {
	var body redirectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON body."})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	redirect, err := h.redirects.Create(c.Request.Context(), c.Param("applicationId"), service.RedirectParams{
		TargetHost:     body.TargetHost,
		TargetProtocol: body.TargetProtocol,
		HostSources:    body.HostSources,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redirect)
}

// Get returns one redirect.
func (h *RedirectHandler) Get(c *gin.Context) {
	redirect, err := h.redirects.Get(c.Request.Context(), c.Param("applicationId"), c.Param("redirectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redirect)
}

// Put replaces a redirect's target and host sources.
func (h *RedirectHandler) Put(c *gin.Context) {
	var body redirectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON body."})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	redirect, err := h.redirects.Update(c.Request.Context(), c.Param("applicationId"), c.Param("redirectId"), service.RedirectParams{
		TargetHost:     body.TargetHost,
		TargetProtocol: body.TargetProtocol,
		HostSources:    body.HostSources,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redirect)
}

// Delete removes a redirect and its host sources.
func (h *RedirectHandler) Delete(c *gin.Context) {
	if err := h.redirects.Delete(c.Request.Context(), c.Param("applicationId"), c.Param("redirectId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// conversionRequest is the from/to upload request body.
type conversionRequest struct {
	File string `json:"file"`
}

// PostConversion enqueues a from/to mapping file for conversion.
func (h *RedirectHandler) PostConversion(c *gin.Context) {
	var body conversionRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.File == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file."})
		return
	}

	job, err := h.redirects.EnqueueConversion(c.Request.Context(), c.Param("applicationId"), c.Param("redirectId"), body.File)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetJob returns the state of a queued conversion job.
func (h *RedirectHandler) GetJob(c *gin.Context) {
	job, err := h.redirects.ConversionJob(c.Request.Context(), queue.FileConverterQueue,
		c.Param("applicationId"), c.Param("redirectId"), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

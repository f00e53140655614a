// Package httpapi exposes the v1 REST API. Handlers are thin: they validate
// parameters, delegate to a service and translate the result into a
// response. Error names map to status codes here and nowhere else.
package httpapi

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/keepat/api/internal/apperr"
)

func respondError(c *gin.Context, err error) {
	status := apperr.StatusFor(err)
	if status >= 500 {
		log.Errorf("http %s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		log.Warnf("http %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"message": apperr.MessageFor(err)})
}

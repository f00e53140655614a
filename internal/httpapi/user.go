package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepat/api/internal/service"
)

// UserHandler serves the profile endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile returns the caller's consolidated profile, provisioning the
// user and a default application on first access.
func (h *UserHandler) GetProfile(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Missing principal."})
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), service.ProfileParams{
		UserID:    principal.UserID,
		UserEmail: principal.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           profile.User.ID,
		"applications": profile.Applications,
	})
}

// DeleteProfile removes the caller's account. Orphaned applications are
// deleted when deleteOrphanApplication=true is passed.
func (h *UserHandler) DeleteProfile(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Missing principal."})
		return
	}

	deleteOrphan := c.Query("deleteOrphanApplication") == "true"
	if err := h.users.Delete(c.Request.Context(), principal.UserID, deleteOrphan); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/carpool-backend/internal/middleware"
)

func (a *API) meHandler(c *gin.Context) {
	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email.String,
		"mayDrive": u.MayDrive,
		"isAdmin":  u.IsAdmin,
	})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/internal/middleware"
)

type generateShareCodeRequest struct {
	RideID string `json:"rideId" binding:"required"`
}

func (a *API) generateShareCodeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	var req generateShareCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	rideID, err := uuid.Parse(req.RideID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid rideId"})
		return
	}

	code, err := a.engine.IssueOrFetchShareCode(c, rideID, u)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

type joinWithCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (a *API) joinWithCodeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	var req joinWithCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	rideID, err := a.engine.JoinByCode(c, req.Code, u.ID)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rideId": rideID, "message": "Successfully joined ride"})
}

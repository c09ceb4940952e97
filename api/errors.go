package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/ride"
)

// writeError maps booking and store errors onto stable machine codes.
// Validation and permission failures are terminal for the request; nothing
// here retries.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ride.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "Ride not found"})
	case errors.Is(err, booking.ErrInvalidCode):
		c.JSON(http.StatusNotFound, gin.H{"code": "INVALID_CODE", "message": "Invalid share code"})
	case errors.Is(err, ride.ErrMalformedCode):
		c.JSON(http.StatusBadRequest, gin.H{"code": "MALFORMED_CODE", "message": "Share code must look like XXXX-XXXX"})
	case errors.Is(err, booking.ErrSelfJoin):
		c.JSON(http.StatusBadRequest, gin.H{"code": "SELF_JOIN_FORBIDDEN", "message": "You cannot join your own ride"})
	case errors.Is(err, booking.ErrAlreadyJoined):
		c.JSON(http.StatusBadRequest, gin.H{"code": "ALREADY_JOINED", "message": "You are already a rider on this ride"})
	case errors.Is(err, booking.ErrRideFull):
		c.JSON(http.StatusBadRequest, gin.H{"code": "RIDE_FULL", "message": "This ride is full"})
	case errors.Is(err, booking.ErrRideExpired):
		c.JSON(http.StatusBadRequest, gin.H{"code": "RIDE_EXPIRED", "message": "This ride has already departed"})
	case errors.Is(err, booking.ErrNotARider):
		c.JSON(http.StatusBadRequest, gin.H{"code": "NOT_A_RIDER", "message": "Not a rider on this ride"})
	case errors.Is(err, booking.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Not authorized for this ride"})
	case errors.Is(err, booking.ErrSamePlace):
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Origin and destination must differ"})
	case errors.Is(err, booking.ErrPastSchedule):
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Ride must be scheduled in the future"})
	case errors.Is(err, booking.ErrSeatCount):
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Ride needs at least one seat"})
	case errors.Is(err, booking.ErrCodeExhausted):
		logger.ErrorContext(c, "share code generation exhausted", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "CODE_GENERATION_FAILED", "message": "Failed to generate unique share code"})
	case errors.Is(err, ride.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"code": "CONFLICT", "message": "Ride changed, please retry"})
	default:
		logger.ErrorContext(c, "unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

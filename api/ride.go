package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/internal/middleware"
	"github.com/semanticallynull/carpool-backend/place"
	"github.com/semanticallynull/carpool-backend/ride"
)

type rideResponse struct {
	ID            uuid.UUID   `json:"id"`
	DriverID      uuid.UUID   `json:"driverId"`
	OriginID      uuid.UUID   `json:"originId"`
	DestinationID uuid.UUID   `json:"destinationId"`
	ScheduledAt   time.Time   `json:"scheduledAt"`
	Seats         int         `json:"seats"`
	Riders        []uuid.UUID `json:"riders"`
	ShareCode     string      `json:"shareCode,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// toRideResponse converts a ride for the wire. The share code is only shown
// to the driver and admins; it is an invitation secret.
func toRideResponse(r ride.Ride, includeCode bool) rideResponse {
	resp := rideResponse{
		ID:            r.ID,
		DriverID:      r.DriverID,
		OriginID:      r.OriginID,
		DestinationID: r.DestinationID,
		ScheduledAt:   r.ScheduledAt,
		Seats:         r.Seats,
		Riders:        r.Riders,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
	if resp.Riders == nil {
		resp.Riders = []uuid.UUID{}
	}
	if includeCode && r.ShareCode.Valid {
		resp.ShareCode = r.ShareCode.String
	}
	return resp
}

type createRideRequest struct {
	OriginID      string `json:"originId" binding:"required"`
	DestinationID string `json:"destinationId" binding:"required"`
	ScheduledAt   string `json:"scheduledAt" binding:"required"`
	Seats         int    `json:"seats" binding:"required"`
	Notes         string `json:"notes"`
}

func (a *API) createRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	originID, err := uuid.Parse(req.OriginID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid originId"})
		return
	}
	destinationID, err := uuid.Parse(req.DestinationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid destinationId"})
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid scheduledAt format"})
		return
	}

	for _, id := range []uuid.UUID{originID, destinationID} {
		if _, err := a.places.GetPlace(c, id); err != nil {
			if err == place.ErrNotFound {
				c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Unknown place " + id.String()})
				return
			}
			logger.ErrorContext(c, "failed to look up place", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	rideID, err := a.engine.Create(c, u, booking.CreateParams{
		OriginID:      originID,
		DestinationID: destinationID,
		ScheduledAt:   scheduledAt,
		Seats:         req.Seats,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rideId": rideID})
}

func (a *API) listRidesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rides, err := a.rides.List(c, 50)
	if err != nil {
		logger.ErrorContext(c, "failed to list rides", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		responses = append(responses, toRideResponse(r, r.DriverID == u.ID || u.IsAdmin))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) getRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid ride id"})
		return
	}

	r, err := a.rides.Get(c, rideID)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponse(r, r.DriverID == u.ID || u.IsAdmin))
}

type updateRideRequest struct {
	OriginID      *string `json:"originId"`
	DestinationID *string `json:"destinationId"`
	ScheduledAt   *string `json:"scheduledAt"`
	Seats         *int    `json:"seats"`
	Notes         *string `json:"notes"`
}

func (a *API) updateRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid ride id"})
		return
	}

	r, err := a.rides.Get(c, rideID)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	if r.DriverID != u.ID && !u.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Not authorized to edit this ride"})
		return
	}

	var req updateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	// Capacity is privileged: only admins may resize a published ride.
	if req.Seats != nil && !u.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Only admins can change seat capacity"})
		return
	}

	upd, err := parseUpdate(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	updated, err := a.rides.Update(c, rideID, upd)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	// Admin updates bypass booking validation; surface anything they broke.
	if violations := ride.CheckInvariants(updated); len(violations) > 0 {
		logger.WarnContext(c, "ride invariants violated after update",
			"ride_id", rideID, "violations", violations)
	}

	c.JSON(http.StatusOK, toRideResponse(updated, true))
}

func parseUpdate(req updateRideRequest) (ride.Update, error) {
	var upd ride.Update
	if req.OriginID != nil {
		id, err := uuid.Parse(*req.OriginID)
		if err != nil {
			return ride.Update{}, err
		}
		upd.OriginID = &id
	}
	if req.DestinationID != nil {
		id, err := uuid.Parse(*req.DestinationID)
		if err != nil {
			return ride.Update{}, err
		}
		upd.DestinationID = &id
	}
	if req.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			return ride.Update{}, err
		}
		upd.ScheduledAt = &t
	}
	upd.Seats = req.Seats
	upd.Notes = req.Notes
	return upd, nil
}

func (a *API) deleteRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid ride id"})
		return
	}

	r, err := a.rides.Get(c, rideID)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	if r.DriverID != u.ID && !u.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Not authorized to delete this ride"})
		return
	}

	if err := a.rides.Delete(c, rideID); err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (a *API) joinRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	ctx, span := otel.Tracer("api").Start(c.Request.Context(), "booking.join")
	defer span.End()

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid ride id"})
		return
	}

	if err := a.engine.JoinBySeat(ctx, rideID, u.ID); err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (a *API) leaveRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid ride id"})
		return
	}

	if err := a.engine.Leave(c, rideID, u.ID); err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (a *API) removeRiderHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	u, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid ride id"})
		return
	}
	riderID, err := uuid.Parse(c.Param("riderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid rider id"})
		return
	}

	if err := a.engine.RemoveRider(c, rideID, u, riderID); err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/internal/middleware"
	"github.com/semanticallynull/carpool-backend/place"
)

type placeResponse struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Lat     float64    `json:"latitude"`
	Lng     float64    `json:"longitude"`
	Type    place.Type `json:"type"`
}

func toPlaceResponse(p place.Place) placeResponse {
	return placeResponse{
		ID:      p.ID,
		Name:    p.Name,
		Address: p.Address,
		Lat:     p.Location.P.X,
		Lng:     p.Location.P.Y,
		Type:    p.Type,
	}
}

func (a *API) placesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	places, err := a.places.GetPlaces(c)
	if err != nil {
		logger.ErrorContext(c, "failed to list places", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]placeResponse, 0, len(places))
	for _, p := range places {
		responses = append(responses, toPlaceResponse(p))
	}
	c.JSON(http.StatusOK, responses)
}

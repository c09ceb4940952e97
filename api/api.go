package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/internal/middleware"
	"github.com/semanticallynull/carpool-backend/internal/o11y"
	"github.com/semanticallynull/carpool-backend/place"
	"github.com/semanticallynull/carpool-backend/ride"
)

// PlaceStore is the read surface the API needs for places.
type PlaceStore interface {
	GetPlaces(ctx context.Context) ([]place.Place, error)
	GetPlace(ctx context.Context, id uuid.UUID) (place.Place, error)
}

type API struct {
	r      *gin.Engine
	engine *booking.Engine
	rides  ride.Store
	places PlaceStore
}

// New wires the router. authn is the authentication middleware guarding the
// API group; tests substitute their own.
func New(engine *booking.Engine, rides ride.Store, places PlaceStore, obs *o11y.Observability,
	authn gin.HandlerFunc, metricsUsername, metricsPassword string,
) *API {
	a := &API{
		r:      gin.New(),
		engine: engine,
		rides:  rides,
		places: places,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metrics := promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})
	a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{metricsUsername: metricsPassword}), gin.WrapH(metrics))

	v1 := a.r.Group("/api/v1")
	v1.Use(authn)
	{
		v1.GET("/me", a.meHandler)
		v1.GET("/places", a.placesHandler)

		v1.GET("/rides", a.listRidesHandler)
		v1.POST("/rides", a.createRideHandler)
		v1.GET("/rides/:id", a.getRideHandler)
		v1.PUT("/rides/:id", a.updateRideHandler)
		v1.DELETE("/rides/:id", a.deleteRideHandler)
		v1.POST("/rides/:id/join", a.joinRideHandler)
		v1.POST("/rides/:id/leave", a.leaveRideHandler)
		v1.DELETE("/rides/:id/riders/:riderId", a.removeRiderHandler)

		v1.POST("/rides/generateShareCode", a.generateShareCodeHandler)
		v1.POST("/rides/joinWithCode", a.joinWithCodeHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

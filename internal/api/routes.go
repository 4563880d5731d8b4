package api

import (
	"marketplace/server/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the engine with the middleware chain and every route.
func NewRouter(handler *Handler, locations *LocationHandler, logger *logrus.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logger(logger, m))
	router.Use(CORS(origins))

	SetupRoutes(router, handler, locations, gatherer)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler, locations *LocationHandler, gatherer prometheus.Gatherer) {
	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	router.GET("/properties", handler.SearchProperties)
	router.POST("/properties/refresh", handler.RefreshProperties)
	router.POST("/properties/clear", handler.ClearFilters)

	api := router.Group("/api")
	{
		api.GET("/search/state", handler.GetSearchState)
		api.POST("/search/filters", handler.UpdateFilters)
		api.GET("/cities", locations.ListCities)
		api.POST("/cities/refresh", locations.RefreshCatalog)
		api.GET("/cities/:id/areas", locations.ListAreas)
	}
}

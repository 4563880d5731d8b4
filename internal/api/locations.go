package api

import (
	"context"
	"errors"
	"marketplace/server/internal/apiclient"
	"marketplace/server/internal/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocationCatalog lists the cities and areas offered by the location selectors.
type LocationCatalog interface {
	Cities(ctx context.Context) ([]models.City, error)
	Areas(ctx context.Context, cityID int) ([]models.Area, error)
	Refresh(ctx context.Context) error
}

type LocationHandler struct {
	catalog LocationCatalog
	logger  *logrus.Logger
}

func NewLocationHandler(catalog LocationCatalog, logger *logrus.Logger) *LocationHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &LocationHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListCities returns all cities
func (h *LocationHandler) ListCities(c *gin.Context) {
	cities, err := h.catalog.Cities(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cities")
		c.JSON(upstreamStatus(err), gin.H{"error": "Failed to get cities"})
		return
	}
	c.JSON(http.StatusOK, cities)
}

// ListAreas returns the areas of a city
func (h *LocationHandler) ListAreas(c *gin.Context) {
	cityID, err := strconv.Atoi(c.Param("id"))
	if err != nil || cityID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid city id"})
		return
	}

	areas, err := h.catalog.Areas(c.Request.Context(), cityID)
	if err != nil {
		h.logger.WithError(err).WithField("city_id", cityID).Error("Failed to get areas")
		c.JSON(upstreamStatus(err), gin.H{"error": "Failed to get areas"})
		return
	}
	c.JSON(http.StatusOK, areas)
}

// RefreshCatalog drops the cached city and area lists so the next lookup
// fetches them again.
func (h *LocationHandler) RefreshCatalog(c *gin.Context) {
	if err := h.catalog.Refresh(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to refresh location catalog")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh locations"})
		return
	}
	h.logger.Info("Location catalog refreshed")
	c.Status(http.StatusNoContent)
}

// upstreamStatus maps a listings API failure onto the status of our response.
func upstreamStatus(err error) int {
	var statusErr *apiclient.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(err, apiclient.ErrRateLimited):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

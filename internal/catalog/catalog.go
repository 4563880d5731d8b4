// Package catalog serves the city and area lists behind the location selectors.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"marketplace/server/internal/cache"
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/models"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrUnknownCity = errors.New("unknown city")

// Source is the upstream of the location lists.
type Source interface {
	ListCities(ctx context.Context) ([]models.City, error)
	ListAreas(ctx context.Context, cityID int) ([]models.Area, error)
}

type Catalog struct {
	source Source
	cities *cache.Memo[[]models.City]
	areas  *cache.Memo[[]models.Area]
}

// New caches the lists of source in store for ttl.
func New(source Source, store cache.Store, ttl time.Duration, logger *logrus.Logger, m *metrics.Metrics) *Catalog {
	return &Catalog{
		source: source,
		cities: cache.NewMemo[[]models.City]("cities", ttl, store, logger, m),
		areas:  cache.NewMemo[[]models.Area]("areas", ttl, store, logger, m),
	}
}

func (c *Catalog) Cities(ctx context.Context) ([]models.City, error) {
	cities, err := c.cities.Get(ctx, "all", c.source.ListCities)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cities, nil
}

func (c *Catalog) Areas(ctx context.Context, cityID int) ([]models.Area, error) {
	areas, err := c.areas.Get(ctx, strconv.Itoa(cityID), func(ctx context.Context) ([]models.Area, error) {
		return c.source.ListAreas(ctx, cityID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list areas of city %d: %w", cityID, err)
	}
	return areas, nil
}

// City finds a city by name, ignoring case and surrounding space.
func (c *Catalog) City(ctx context.Context, name string) (models.City, error) {
	cities, err := c.Cities(ctx)
	if err != nil {
		return models.City{}, err
	}
	name = strings.TrimSpace(name)
	for _, city := range cities {
		if strings.EqualFold(city.Name, name) {
			return city, nil
		}
	}
	return models.City{}, fmt.Errorf("%w: %q", ErrUnknownCity, name)
}

// AreasForCity returns the areas of the named city.
func (c *Catalog) AreasForCity(ctx context.Context, name string) ([]models.Area, error) {
	city, err := c.City(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.Areas(ctx, city.ID)
}

// Refresh drops every cached list.
func (c *Catalog) Refresh(ctx context.Context) error {
	if err := c.cities.Purge(ctx); err != nil {
		return err
	}
	return c.areas.Purge(ctx)
}

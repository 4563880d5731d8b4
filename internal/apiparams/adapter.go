// Package apiparams derives the query parameters of the marketplace property
// search endpoint from a filter state.
package apiparams

import (
	"marketplace/server/internal/filter"
	"marketplace/server/internal/urlcodec"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params are the query parameters of GET /properties. Every value is a plain
// string; an absent key means "not constrained".
type Params map[string]string

// Values converts p into url.Values.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for key, value := range p {
		v.Set(key, value)
	}
	return v
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (p Params) set(key, value string) {
	if value == "" || value == filter.Sentinel {
		return
	}
	p[key] = value
}

func (p Params) setList(key string, values []string, translate func(string) string) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if translate != nil {
			v = translate(v)
		}
		out = append(out, v)
	}
	p.set(key, strings.Join(out, ","))
}

func (p Params) setFlag(key string, on bool) {
	if on {
		p[key] = "true"
	}
}

func (p Params) setRange(minKey, maxKey string, r filter.Range) {
	p.set(minKey, number(r.Min))
	p.set(maxKey, number(r.Max))
}

// ToAPIParams maps a search to the parameters the API expects: display labels
// become API codes, lists become comma-joined strings, true flags become
// "true" and every unconstrained value is left out. It never fails; a range
// bound that is not a number is passed through as typed.
func ToAPIParams(state filter.State, sort string, page int) Params {
	p := make(Params)

	p.set("search", strings.TrimSpace(state.Search))
	if v, ok := state.TransactionType.Get(); ok {
		p.set("dealType", TransactionCode(string(v)))
		// Subcategories only narrow daily rentals.
		if TransactionCode(string(v)) == string(filter.Daily) {
			p.set("dailyRentalSubcategory", state.DailyRentalSubcategory.Wire())
		}
	}
	p.setList("propertyType", state.PropertyType, PropertyTypeCode)
	p.set("location", strings.TrimSpace(state.Location))
	p.set("city", state.City)
	if state.AreaID != nil {
		p.set("areaId", strconv.Itoa(*state.AreaID))
	}

	p.setRange("minPrice", "maxPrice", state.Price)
	p.setRange("minArea", "maxArea", state.Area)
	p.setList("bedrooms", state.Bedrooms, nil)
	p.setList("bathrooms", state.Bathrooms, nil)
	p.setList("rooms", state.Rooms, nil)

	p.set("totalFloors", state.TotalFloors.Wire())
	p.set("buildingStatus", state.BuildingStatus.Wire())
	p.setRange("minConstructionYear", "maxConstructionYear", state.ConstructionYear)
	p.set("condition", state.Condition.Wire())
	p.set("projectType", state.ProjectType.Wire())
	p.setRange("minCeilingHeight", "maxCeilingHeight", state.CeilingHeight)
	p.set("heating", state.Heating.Wire())
	p.set("parking", state.Parking.Wire())
	p.set("hotWater", state.HotWater.Wire())
	p.set("buildingMaterial", state.BuildingMaterial.Wire())

	p.setFlag("hasBalcony", state.HasBalcony)
	p.setFlag("hasPool", state.HasPool)
	p.setFlag("hasLivingRoom", state.HasLivingRoom)
	p.setFlag("hasLoggia", state.HasLoggia)
	p.setFlag("hasVeranda", state.HasVeranda)
	p.setFlag("hasYard", state.HasYard)
	p.setFlag("hasStorage", state.HasStorage)

	p.setList("features", state.SelectedFeatures, nil)
	p.setList("advantages", state.SelectedAdvantages, nil)
	p.setList("furnitureAppliances", state.SelectedFurnitureAppliances, nil)

	if sort != urlcodec.DefaultSort {
		p.set("sort", sort)
	}
	if page > urlcodec.DefaultPage {
		p.set("page", strconv.Itoa(page))
	}
	return p
}

// number renders a range bound in canonical decimal form. Open bounds are
// empty and malformed bounds are returned unchanged.
func number(raw string) string {
	d, err := filter.ParseBound(raw)
	if err != nil {
		return raw
	}
	if d == nil {
		return ""
	}
	return d.String()
}

// Package urlcodec maps a filter state, sort key and page to the query string
// of a shareable search URL and back.
package urlcodec

import (
	"marketplace/server/internal/filter"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultSort = "newest"
	DefaultPage = 1

	// SearchPath is the path of the search page.
	SearchPath = "/properties"
)

// SortKeys lists the sort orders the search page offers.
var SortKeys = []string{DefaultSort, "oldest", "price_asc", "price_desc", "area_asc", "area_desc"}

// IsSortKey reports whether key is a known sort order.
func IsSortKey(key string) bool {
	for _, k := range SortKeys {
		if k == key {
			return true
		}
	}
	return false
}

// param binds a query parameter to a state field.
type param struct {
	name   string
	encode func(s *filter.State) []string
	decode func(s *filter.State, values []string)
}

func text(name string, field func(*filter.State) *string) param {
	return param{
		name: name,
		encode: func(s *filter.State) []string {
			if v := *field(s); v != "" {
				return []string{v}
			}
			return nil
		},
		decode: func(s *filter.State, values []string) {
			*field(s) = strings.Join(values, ",")
		},
	}
}

func list(name string, field func(*filter.State) *[]string) param {
	return param{
		name: name,
		encode: func(s *filter.State) []string {
			return *field(s)
		},
		decode: func(s *filter.State, values []string) {
			*field(s) = values
		},
	}
}

func choice(name string, field func(*filter.State) *filter.Choice[string]) param {
	return param{
		name: name,
		encode: func(s *filter.State) []string {
			if v, ok := field(s).Get(); ok {
				return []string{v}
			}
			return nil
		},
		decode: func(s *filter.State, values []string) {
			*field(s) = filter.Only(strings.Join(values, ","))
		},
	}
}

func flag(name string, field func(*filter.State) *bool) param {
	return param{
		name: name,
		encode: func(s *filter.State) []string {
			if *field(s) {
				return []string{"true"}
			}
			return nil
		},
		decode: func(s *filter.State, values []string) {
			*field(s) = len(values) == 1 && values[0] == "true"
		},
	}
}

// params is the canonical parameter order of a search URL.
var params = []param{
	text("search", func(s *filter.State) *string { return &s.Search }),
	text("priceMin", func(s *filter.State) *string { return &s.Price.Min }),
	text("priceMax", func(s *filter.State) *string { return &s.Price.Max }),
	text("location", func(s *filter.State) *string { return &s.Location }),
	text("city", func(s *filter.State) *string { return &s.City }),
	{
		name: "areaId",
		encode: func(s *filter.State) []string {
			if s.AreaID == nil {
				return nil
			}
			return []string{strconv.Itoa(*s.AreaID)}
		},
		decode: func(s *filter.State, values []string) {
			if id, err := strconv.Atoi(values[0]); err == nil && len(values) == 1 {
				s.AreaID = &id
			}
		},
	},
	list("propertyType", func(s *filter.State) *[]string { return &s.PropertyType }),
	{
		name: "transactionType",
		encode: func(s *filter.State) []string {
			if v, ok := s.TransactionType.Get(); ok {
				return []string{string(v)}
			}
			return nil
		},
		decode: func(s *filter.State, values []string) {
			s.TransactionType = filter.Only(filter.TransactionType(strings.Join(values, ",")))
		},
	},
	choice("dailyRentalSubcategory", func(s *filter.State) *filter.Choice[string] { return &s.DailyRentalSubcategory }),
	list("bedrooms", func(s *filter.State) *[]string { return &s.Bedrooms }),
	list("bathrooms", func(s *filter.State) *[]string { return &s.Bathrooms }),
	text("areaMin", func(s *filter.State) *string { return &s.Area.Min }),
	text("areaMax", func(s *filter.State) *string { return &s.Area.Max }),
	list("rooms", func(s *filter.State) *[]string { return &s.Rooms }),
	choice("totalFloors", func(s *filter.State) *filter.Choice[string] { return &s.TotalFloors }),
	choice("buildingStatus", func(s *filter.State) *filter.Choice[string] { return &s.BuildingStatus }),
	text("constructionYearMin", func(s *filter.State) *string { return &s.ConstructionYear.Min }),
	text("constructionYearMax", func(s *filter.State) *string { return &s.ConstructionYear.Max }),
	choice("condition", func(s *filter.State) *filter.Choice[string] { return &s.Condition }),
	choice("projectType", func(s *filter.State) *filter.Choice[string] { return &s.ProjectType }),
	text("ceilingHeightMin", func(s *filter.State) *string { return &s.CeilingHeight.Min }),
	text("ceilingHeightMax", func(s *filter.State) *string { return &s.CeilingHeight.Max }),
	choice("heating", func(s *filter.State) *filter.Choice[string] { return &s.Heating }),
	choice("parking", func(s *filter.State) *filter.Choice[string] { return &s.Parking }),
	choice("hotWater", func(s *filter.State) *filter.Choice[string] { return &s.HotWater }),
	choice("buildingMaterial", func(s *filter.State) *filter.Choice[string] { return &s.BuildingMaterial }),
	flag("hasBalcony", func(s *filter.State) *bool { return &s.HasBalcony }),
	flag("hasPool", func(s *filter.State) *bool { return &s.HasPool }),
	flag("hasLivingRoom", func(s *filter.State) *bool { return &s.HasLivingRoom }),
	flag("hasLoggia", func(s *filter.State) *bool { return &s.HasLoggia }),
	flag("hasVeranda", func(s *filter.State) *bool { return &s.HasVeranda }),
	flag("hasYard", func(s *filter.State) *bool { return &s.HasYard }),
	flag("hasStorage", func(s *filter.State) *bool { return &s.HasStorage }),
	list("selectedFeatures", func(s *filter.State) *[]string { return &s.SelectedFeatures }),
	list("selectedAdvantages", func(s *filter.State) *[]string { return &s.SelectedAdvantages }),
	list("selectedFurnitureAppliances", func(s *filter.State) *[]string { return &s.SelectedFurnitureAppliances }),
}

// Encode returns the canonical query string of a search, without the leading '?'.
// Unconstrained fields, the default sort and the first page are omitted.
// Values of multi-select fields are joined with a literal ','; commas inside a
// value are escaped so they survive Decode.
func Encode(state filter.State, sort string, page int) string {
	state = state.Normalized()

	var b strings.Builder
	add := func(name string, values []string) {
		escaped := make([]string, 0, len(values))
		for _, v := range values {
			if v == "" {
				continue
			}
			escaped = append(escaped, url.QueryEscape(v))
		}
		if len(escaped) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(escaped, ","))
	}

	for _, p := range params {
		add(p.name, p.encode(&state))
	}
	if sort != DefaultSort && IsSortKey(sort) {
		add("sort", []string{sort})
	}
	if page > DefaultPage {
		add("page", []string{strconv.Itoa(page)})
	}
	return b.String()
}

// Decode parses a raw query string into a complete state, sort key and page.
// Missing parameters take their unconstrained value and unknown parameters are
// ignored. Unknown sort keys and invalid pages fall back to the defaults.
func Decode(rawQuery string) (filter.State, string, int) {
	raw := splitQuery(rawQuery)

	state := filter.Default()
	for _, p := range params {
		values, ok := raw[p.name]
		if !ok || len(values) == 0 {
			continue
		}
		p.decode(&state, values)
	}

	sort := DefaultSort
	if values, ok := raw["sort"]; ok && len(values) == 1 && IsSortKey(values[0]) {
		sort = values[0]
	}

	page := DefaultPage
	if values, ok := raw["page"]; ok && len(values) == 1 {
		if n, err := strconv.Atoi(values[0]); err == nil && n > 0 {
			page = n
		}
	}

	return state.Normalized(), sort, page
}

// URL returns path with the canonical query of the search appended.
func URL(path string, state filter.State, sort string, page int) string {
	q := Encode(state, sort, page)
	if q == "" {
		return path
	}
	return path + "?" + q
}

// splitQuery splits a raw query into unescaped comma-separated values per key.
// The first occurrence of a key wins.
func splitQuery(rawQuery string) map[string][]string {
	out := make(map[string][]string)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		if _, seen := out[key]; seen {
			continue
		}
		var values []string
		for _, part := range strings.Split(rawValue, ",") {
			v, err := url.QueryUnescape(part)
			if err != nil || v == "" {
				continue
			}
			values = append(values, v)
		}
		out[key] = values
	}
	return out
}

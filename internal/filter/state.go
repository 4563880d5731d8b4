package filter

import (
	"errors"
	"fmt"
	"marketplace/server/internal/models"
	"reflect"
)

var (
	ErrAreaNotInCity = errors.New("area does not belong to the selected city")
	ErrNoCity        = errors.New("no city selected")
)

// TransactionType is the deal kind of a listing.
type TransactionType string

const (
	Sale      TransactionType = "sale"
	Rent      TransactionType = "rent"
	Mortgage  TransactionType = "mortgage"
	Lease     TransactionType = "lease"
	Daily     TransactionType = "daily"
	RentToBuy TransactionType = "rent-to-buy"
)

// TransactionTypes lists every known deal kind.
var TransactionTypes = []TransactionType{Sale, Rent, Mortgage, Lease, Daily, RentToBuy}

// PropertyTypes lists the multi-select values of State.PropertyType.
var PropertyTypes = []string{"apartment", "house", "cottage", "land", "commercial", "office", "hotel"}

// State is the search intent of a property search view. The zero value is the
// unconstrained search.
type State struct {
	Search                 string
	TransactionType        Choice[TransactionType]
	DailyRentalSubcategory Choice[string]
	PropertyType           []string
	Location               string
	City                   string
	AreaID                 *int

	Price            Range
	Area             Range
	ConstructionYear Range
	CeilingHeight    Range

	Bedrooms  []string
	Bathrooms []string
	Rooms     []string

	TotalFloors      Choice[string]
	BuildingStatus   Choice[string]
	Condition        Choice[string]
	ProjectType      Choice[string]
	Heating          Choice[string]
	Parking          Choice[string]
	HotWater         Choice[string]
	BuildingMaterial Choice[string]

	HasBalcony    bool
	HasPool       bool
	HasLivingRoom bool
	HasLoggia     bool
	HasVeranda    bool
	HasYard       bool
	HasStorage    bool

	SelectedFeatures            []string
	SelectedAdvantages          []string
	SelectedFurnitureAppliances []string
}

// Default returns a State with every field unconstrained.
func Default() State {
	return State{}
}

// Clear resets every field to its unconstrained value, including city and area.
func (s *State) Clear() {
	*s = Default()
}

// IsDefault reports whether the state constrains nothing.
func (s State) IsDefault() bool {
	return reflect.DeepEqual(s.Normalized(), Default())
}

// SetCity selects a city. Changing the city drops the selected area.
func (s *State) SetCity(city string) {
	if city == s.City {
		return
	}
	s.City = city
	s.AreaID = nil
}

// SetArea selects an area of the current city. areas is the area list of that city.
func (s *State) SetArea(id int, areas []models.Area) error {
	if s.City == "" {
		return ErrNoCity
	}
	if !containsArea(areas, id) {
		return fmt.Errorf("%w: area %d, city %q", ErrAreaNotInCity, id, s.City)
	}
	s.AreaID = &id
	return nil
}

// ClearArea drops the selected area.
func (s *State) ClearArea() {
	s.AreaID = nil
}

// ValidateArea checks that the selected area, if any, is one of areas.
func (s State) ValidateArea(areas []models.Area) error {
	if s.AreaID == nil {
		return nil
	}
	if s.City == "" {
		return fmt.Errorf("%w: area %d", ErrNoCity, *s.AreaID)
	}
	if !containsArea(areas, *s.AreaID) {
		return fmt.Errorf("%w: area %d, city %q", ErrAreaNotInCity, *s.AreaID, s.City)
	}
	return nil
}

// SetRange replaces a numeric range, rejecting non-numeric or inverted bounds.
func (s *State) SetRange(field RangeField, min, max string) error {
	ref, err := s.rangeRef(field)
	if err != nil {
		return err
	}
	r := Range{Min: min, Max: max}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*ref = r
	return nil
}

// Validate checks every range of the state.
func (s State) Validate() error {
	for _, field := range RangeFields {
		r, err := s.rangeRef(field)
		if err != nil {
			return err
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// Normalized returns a copy with empty slices and empty slice elements removed.
func (s State) Normalized() State {
	s.PropertyType = compact(s.PropertyType)
	s.Bedrooms = compact(s.Bedrooms)
	s.Bathrooms = compact(s.Bathrooms)
	s.Rooms = compact(s.Rooms)
	s.SelectedFeatures = compact(s.SelectedFeatures)
	s.SelectedAdvantages = compact(s.SelectedAdvantages)
	s.SelectedFurnitureAppliances = compact(s.SelectedFurnitureAppliances)
	return s
}

func (s *State) rangeRef(field RangeField) (*Range, error) {
	switch field {
	case PriceRange:
		return &s.Price, nil
	case AreaRange:
		return &s.Area, nil
	case ConstructionYearRange:
		return &s.ConstructionYear, nil
	case CeilingHeightRange:
		return &s.CeilingHeight, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRange, field)
	}
}

func containsArea(areas []models.Area, id int) bool {
	for _, a := range areas {
		if a.ID == id {
			return true
		}
	}
	return false
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

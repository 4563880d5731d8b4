package urlcodec

import (
	"marketplace/server/internal/filter"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHistory struct {
	entries []string
}

func (h *recordingHistory) Replace(url string) {
	if len(h.entries) == 0 {
		h.entries = append(h.entries, url)
		return
	}
	h.entries[len(h.entries)-1] = url
}

func intPtr(v int) *int {
	return &v
}

func fullState() filter.State {
	return filter.State{
		Search:                      "sea view, new",
		TransactionType:             filter.Only(filter.Daily),
		DailyRentalSubcategory:      filter.Only("apartment-hotel"),
		PropertyType:                []string{"apartment", "house"},
		Location:                    "Old Tbilisi",
		City:                        "Tbilisi",
		AreaID:                      intPtr(12),
		Price:                       filter.Range{Min: "50000", Max: "120000.50"},
		Area:                        filter.Range{Min: "40"},
		ConstructionYear:            filter.Range{Min: "1990", Max: "2024"},
		CeilingHeight:               filter.Range{Max: "3.2"},
		Bedrooms:                    []string{"2", "3"},
		Bathrooms:                   []string{"1"},
		Rooms:                       []string{"4", "5+"},
		TotalFloors:                 filter.Only("10"),
		BuildingStatus:              filter.Only("new"),
		Condition:                   filter.Only("renovated"),
		ProjectType:                 filter.Only("lvov"),
		Heating:                     filter.Only("central"),
		Parking:                     filter.Only("garage"),
		HotWater:                    filter.Only("boiler"),
		BuildingMaterial:            filter.Only("brick"),
		HasBalcony:                  true,
		HasPool:                     true,
		HasLivingRoom:               true,
		HasLoggia:                   true,
		HasVeranda:                  true,
		HasYard:                     true,
		HasStorage:                  true,
		SelectedFeatures:            []string{"elevator", "gas, electric"},
		SelectedAdvantages:          []string{"near metro"},
		SelectedFurnitureAppliances: []string{"fridge", "tv"},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state filter.State
		sort  string
		page  int
	}{
		{name: "default", state: filter.Default(), sort: DefaultSort, page: 1},
		{name: "every field set", state: fullState(), sort: "price_desc", page: 7},
		{name: "georgian label", state: filter.State{TransactionType: filter.Only(filter.TransactionType("იყიდება"))}, sort: DefaultSort, page: 1},
		{name: "single element arrays", state: filter.State{PropertyType: []string{"land"}, Rooms: []string{"1"}}, sort: "oldest", page: 2},
		{name: "only booleans", state: filter.State{HasYard: true}, sort: "area_asc", page: 1},
		{name: "city without area", state: filter.State{City: "Batumi"}, sort: DefaultSort, page: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, sort, page := Decode(Encode(tt.state, tt.sort, tt.page))
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.sort, sort)
			assert.Equal(t, tt.page, page)
		})
	}
}

func TestEncodeOmitsSentinels(t *testing.T) {
	assert.Equal(t, "", Encode(filter.Default(), DefaultSort, 1))

	// Each field individually at its sentinel emits nothing.
	s := filter.State{
		TransactionType: filter.Only(filter.TransactionType(filter.Sentinel)),
		Heating:         filter.Only(filter.Sentinel),
		PropertyType:    []string{},
		Bedrooms:        []string{""},
		Price:           filter.Range{},
		HasPool:         false,
	}
	assert.Equal(t, "", Encode(s, DefaultSort, 1))
	assert.Equal(t, "", Encode(s, "", 0))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		state filter.State
		sort  string
		page  int
		want  string
	}{
		{
			name:  "multi select joined with comma",
			state: filter.State{PropertyType: []string{"apartment", "house"}},
			sort:  DefaultSort,
			page:  1,
			want:  "propertyType=apartment,house",
		},
		{
			name:  "boolean only when true",
			state: filter.State{HasBalcony: true, HasPool: false},
			sort:  DefaultSort,
			page:  1,
			want:  "hasBalcony=true",
		},
		{
			name:  "sort and page",
			state: filter.State{},
			sort:  "price_asc",
			page:  2,
			want:  "sort=price_asc&page=2",
		},
		{
			name:  "unknown sort is dropped",
			state: filter.State{},
			sort:  "cheapest",
			page:  1,
			want:  "",
		},
		{
			name:  "canonical order",
			state: filter.State{HasStorage: true, Search: "vake", Bedrooms: []string{"2"}, Price: filter.Range{Min: "100"}},
			sort:  DefaultSort,
			page:  1,
			want:  "search=vake&priceMin=100&bedrooms=2&hasStorage=true",
		},
		{
			name:  "comma inside a tag is escaped",
			state: filter.State{SelectedFeatures: []string{"gas, electric", "lift"}},
			sort:  DefaultSort,
			page:  1,
			want:  "selectedFeatures=gas%2C+electric,lift",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.state, tt.sort, tt.page))
		})
	}
}

func TestDecodeDeepLink(t *testing.T) {
	state, sort, page := Decode("bedrooms=2,3&hasBalcony=true&page=2")

	want := filter.Default()
	want.Bedrooms = []string{"2", "3"}
	want.HasBalcony = true

	assert.Equal(t, want, state)
	assert.Equal(t, DefaultSort, sort)
	assert.Equal(t, 2, page)
}

func TestDecode(t *testing.T) {
	t.Run("single value of an array field", func(t *testing.T) {
		state, _, _ := Decode("propertyType=apartment")
		assert.Equal(t, []string{"apartment"}, state.PropertyType)
	})

	t.Run("unknown parameters are ignored", func(t *testing.T) {
		state, sort, page := Decode("utm_source=mail&propertyType=house&foo=bar")
		assert.Equal(t, filter.State{PropertyType: []string{"house"}}, state)
		assert.Equal(t, DefaultSort, sort)
		assert.Equal(t, 1, page)
	})

	t.Run("sentinel single select is unset", func(t *testing.T) {
		state, _, _ := Decode("heating=all&transactionType=all")
		assert.False(t, state.Heating.IsSet())
		assert.False(t, state.TransactionType.IsSet())
	})

	t.Run("boolean other than true is false", func(t *testing.T) {
		state, _, _ := Decode("hasPool=false&hasYard=1")
		assert.False(t, state.HasPool)
		assert.False(t, state.HasYard)
	})

	t.Run("invalid page and sort fall back", func(t *testing.T) {
		_, sort, page := Decode("sort=random&page=-4")
		assert.Equal(t, DefaultSort, sort)
		assert.Equal(t, 1, page)

		_, _, page = Decode("page=abc")
		assert.Equal(t, 1, page)
	})

	t.Run("invalid area id is unset", func(t *testing.T) {
		state, _, _ := Decode("city=Tbilisi&areaId=vake")
		assert.Nil(t, state.AreaID)
		assert.Equal(t, "Tbilisi", state.City)
	})

	t.Run("percent encoded georgian", func(t *testing.T) {
		state, _, _ := Decode("transactionType=%E1%83%98%E1%83%A7%E1%83%98%E1%83%93%E1%83%94%E1%83%91%E1%83%90")
		v, ok := state.TransactionType.Get()
		assert.True(t, ok)
		assert.Equal(t, filter.TransactionType("იყიდება"), v)
	})
}

func TestURLAndSync(t *testing.T) {
	h := &recordingHistory{}

	u := Sync(h, SearchPath, filter.State{HasPool: true}, DefaultSort, 1)
	assert.Equal(t, "/properties?hasPool=true", u)

	u = Sync(h, SearchPath, filter.State{HasPool: true}, DefaultSort, 2)
	assert.Equal(t, "/properties?hasPool=true&page=2", u)

	s := fullState()
	s.Clear()
	u = Sync(h, SearchPath, s, DefaultSort, 1)
	assert.Equal(t, "/properties", u)

	assert.Equal(t, []string{"/properties"}, h.entries, "sync never adds history entries")
}

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical(""))
	assert.True(t, IsCanonical("propertyType=apartment,house&page=2"))
	assert.False(t, IsCanonical("page=1"))
	assert.False(t, IsCanonical("page=2&propertyType=apartment,house"))
	assert.False(t, IsCanonical("sort=newest"))
	assert.False(t, IsCanonical("heating=all"))
}
